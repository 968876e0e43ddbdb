package render

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"guild-loot/internal/model"
	"guild-loot/internal/service"
)

const (
	NoItems          = "📦 No items added yet!"
	NoRaffle         = "Not enough users for raffle!"
	PermissionDenied = "❌ You don't have permission to use this command!"
	InternalError    = "❌ Something went wrong, please try again later."
)

func Moved(c *service.Change) string {
	return fmt.Sprintf("✅ **%s**'s position for **%s** has been updated to %d!", c.Member.Name, c.Item.Name, c.To)
}

func Passed(c *service.Change) string {
	if c.Outcome == service.Noop {
		return fmt.Sprintf("**%s** is not in the priority list for **%s**!", c.Member.Name, c.Item.Name)
	}
	return fmt.Sprintf("✅ **%s** passed on **%s**!", c.Member.Name, c.Item.Name)
}

func Bound(c *service.Change) string {
	return fmt.Sprintf("✅ **%s** has bound **%s** and moved to the end of the queue!", c.Member.Name, c.Item.Name)
}

func ItemDeleted(item *model.Item) string {
	return fmt.Sprintf("✅ **%s** has been successfully deleted!", item.Name)
}

func MemberAdded(m *model.Member, queues int) string {
	return fmt.Sprintf("✅ **%s** has been successfully added and placed in all item queues! (%d)", m.Name, queues)
}

func MemberKicked(m *model.Member) string {
	return fmt.Sprintf("✅ **%s** has been successfully removed from the guild!", m.Name)
}

func Rolled(name string, n int) string {
	return fmt.Sprintf("🎲 **%s** rolled: **%d**!", name, n)
}

func RaffleWinner(m *model.Member) string {
	return fmt.Sprintf("🎉 Raffle Result: **%s** won!", m.Name)
}

func OutOfRange(max int) string {
	if max == 0 {
		return "❌ The priority list for this item is empty!"
	}
	return fmt.Sprintf("❌ Position must be between 1 and %d!", max)
}

func ItemNotFound(ref string) string {
	return fmt.Sprintf("❌ Item '%s' not found!", ref)
}

func MemberNotFound(ref string) string {
	return fmt.Sprintf("❌ Player '%s' not found in the guild roster!", ref)
}

func NotQueued(member, item string) string {
	return fmt.Sprintf("❌ Player '%s' is not in the priority list for '%s'!", member, item)
}

func DuplicateItem(existing string) string {
	return fmt.Sprintf("❌ This item already exists! (%s)", existing)
}

func DuplicateMember(existing string) string {
	return fmt.Sprintf("❌ This player is already in the guild! (%s)", existing)
}

// Invalid formats a lower-case error reason as a sentence.
func Invalid(reason string) string {
	r, size := utf8.DecodeRuneInString(reason)
	return "❌ " + string(unicode.ToUpper(r)) + reason[size:] + "!"
}
