package render

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"guild-loot/internal/service"
)

// MessageLimit keeps pages under the 2000 character chat limit with room for
// the closing code fence.
const MessageLimit = 1990

const maxNameLen = 15

const (
	ansiReset  = "\u001b[0m"
	ansiTitle  = "\u001b[1;35m"
	ansiItem   = "\u001b[1;33m"
	ansiGold   = "\u001b[1;33m"
	ansiSilver = "\u001b[1;37m"
	ansiBronze = "\u001b[0;33m"
	ansiPlain  = "\u001b[0;37m"
)

// Renderer turns engine results into chat messages.
type Renderer struct {
	GuildName string
}

func New(guildName string) *Renderer {
	if guildName == "" {
		guildName = "Guild"
	}
	return &Renderer{GuildName: guildName}
}

func marker(rank int) (color, symbol string) {
	switch rank {
	case 1:
		return ansiGold, "👑"
	case 2:
		return ansiSilver, "🥈"
	case 3:
		return ansiBronze, "🥉"
	default:
		return ansiPlain, "•"
	}
}

// Truncate shortens long names to 15 runes followed by "...".
func Truncate(name string) string {
	if utf8.RuneCountInString(name) <= maxNameLen {
		return name
	}
	return string([]rune(name)[:maxNameLen]) + "..."
}

func writeStandings(b *strings.Builder, standings []service.Standing) {
	for _, st := range standings {
		color, symbol := marker(st.Rank)
		fmt.Fprintf(b, "%s   %s %2d. %s%s\n", color, symbol, st.Rank, Truncate(st.Member.Name), ansiReset)
	}
}

// ItemList renders every queue. It consumes seq lazily and stops at the first error.
func (r *Renderer) ItemList(seq iter.Seq2[service.ItemQueue, error]) (string, bool, error) {
	var b strings.Builder
	b.WriteString("```ansi\n")
	fmt.Fprintf(&b, "%s⚔️ %s - ITEM PRIORITY ⚔️%s\n", ansiTitle, strings.ToUpper(r.GuildName), ansiReset)
	fmt.Fprintf(&b, "%s%s%s\n\n", ansiTitle, strings.Repeat("━", 34), ansiReset)

	found := false
	for q, err := range seq {
		if err != nil {
			return "", false, err
		}
		found = true
		fmt.Fprintf(&b, "%s🎯 %s%s\n", ansiItem, strings.ToUpper(q.Item.Name), ansiReset)
		if len(q.Standings) == 0 {
			fmt.Fprintf(&b, "%s   • No priority list yet!%s\n", ansiPlain, ansiReset)
		} else {
			writeStandings(&b, q.Standings)
		}
		b.WriteString("\n")
	}
	b.WriteString("```")
	return b.String(), found, nil
}

// ItemQueue renders a single item's queue.
func (r *Renderer) ItemQueue(q *service.ItemQueue) string {
	if len(q.Standings) == 0 {
		return fmt.Sprintf("📝 No priority list yet for **%s**!", q.Item.Name)
	}
	var b strings.Builder
	b.WriteString("```ansi\n")
	fmt.Fprintf(&b, "%s🎯 %s LOOT PRIORITY LIST%s\n", ansiTitle, strings.ToUpper(q.Item.Name), ansiReset)
	fmt.Fprintf(&b, "%s%s%s\n\n", ansiTitle, strings.Repeat("━", 22), ansiReset)
	writeStandings(&b, q.Standings)
	b.WriteString("```")
	return b.String()
}

// MemberLoot renders a member's place in every queue.
func (r *Renderer) MemberLoot(l *service.MemberLoot) string {
	if len(l.Standings) == 0 {
		return fmt.Sprintf("📝 **%s** is not in any priority list yet!", l.Member.Name)
	}
	var b strings.Builder
	b.WriteString("```ansi\n")
	fmt.Fprintf(&b, "%s👤 %s - LOOT PRIORITIES%s\n", ansiTitle, strings.ToUpper(Truncate(l.Member.Name)), ansiReset)
	fmt.Fprintf(&b, "%s%s%s\n\n", ansiTitle, strings.Repeat("━", 22), ansiReset)
	for _, st := range l.Standings {
		color, symbol := marker(st.Rank)
		fmt.Fprintf(&b, "%s   %s %2d/%d %s%s\n", color, symbol, st.Rank, st.Total, st.Item.Name, ansiReset)
	}
	b.WriteString("```")
	return b.String()
}

// SeededQueue lists the automatic order given to a new item.
func (r *Renderer) SeededQueue(q *service.ItemQueue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ **%s** has been successfully added!\n\nAutomatic priority list:\n", q.Item.Name)
	for _, st := range q.Standings {
		fmt.Fprintf(&b, "%d. %s\n", st.Rank, st.Member.Name)
	}
	return b.String()
}

// Paginate splits msg into pages of at most limit bytes, preferring line
// breaks. A message that is a code block gets its fence closed and reopened
// on every page; the closing fence is not counted against limit.
func Paginate(msg string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	limit = max(limit, utf8.UTFMax)
	fence := ""
	if strings.HasPrefix(msg, "```") {
		if nl := strings.IndexByte(msg, '\n'); nl > 0 && nl+1+2*utf8.UTFMax < limit {
			fence = msg[:nl+1]
		}
	}

	var pages []string
	for len(msg) > limit {
		cut := strings.LastIndexByte(msg[:limit], '\n')
		next := cut + 1
		if cut <= len(fence) {
			// no usable line break: cut at a rune boundary
			cut = limit
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
			next = cut
		}
		page := msg[:cut]
		if fence != "" {
			page += "```"
		}
		pages = append(pages, page)
		msg = fence + msg[next:]
	}
	if msg != "" {
		pages = append(pages, msg)
	}
	return pages
}
