package command

import (
	"fmt"
	"strings"
)

type OptionKind int

const (
	OptionString OptionKind = iota
	OptionInteger
	OptionUser
)

// Option argument names shared by every transport.
const (
	ArgItem       = "item_name"
	ArgMember     = "member"
	ArgMemberName = "member_name"
	ArgPosition   = "new_position"
	ArgUsername   = "username"
)

type Option struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
}

// Definition describes one command for help output and transport registration.
type Definition struct {
	Name        string
	Description string
	Admin       bool
	Options     []Option
}

var itemOption = Option{Name: ArgItem, Description: "Name of the item", Kind: OptionString, Required: true}

// Commands is the full command table in help order.
var Commands = []Definition{
	{Name: "help", Description: "Show all available commands"},
	{Name: "itemlist", Description: "Show all items and their priority lists"},
	{Name: "itemqueue", Description: "Show the priority list for a specific item", Options: []Option{itemOption}},
	{Name: "myloot", Description: "Show your position in every priority list"},
	{Name: "roll", Description: "Roll a number between 1 and 100"},
	{Name: "raffle", Description: "Pick a random guild member"},
	{Name: "moveplayer", Description: "Move a player to a position in an item's priority list", Admin: true, Options: []Option{
		itemOption,
		{Name: ArgMember, Description: "Player to move", Kind: OptionUser, Required: true},
		{Name: ArgPosition, Description: "New position", Kind: OptionInteger, Required: true},
	}},
	{Name: "pass", Description: "Take a player off an item's priority list", Admin: true, Options: []Option{
		itemOption,
		{Name: ArgMember, Description: "Player who passes", Kind: OptionUser, Required: true},
	}},
	{Name: "bind", Description: "Record that a player received an item and send them to the back", Admin: true, Options: []Option{
		itemOption,
		{Name: ArgMember, Description: "Player who received the item", Kind: OptionUser, Required: true},
	}},
	{Name: "additem", Description: "Add a new item with an automatic priority list", Admin: true, Options: []Option{itemOption}},
	{Name: "deleteitem", Description: "Delete an item and its priority list", Admin: true, Options: []Option{itemOption}},
	{Name: "addplayer", Description: "Add a player to the guild and every priority list", Admin: true, Options: []Option{
		{Name: ArgMember, Description: "Player to add", Kind: OptionUser, Required: true},
		{Name: ArgUsername, Description: "Name shown in priority lists", Kind: OptionString},
	}},
	{Name: "kickplayer", Description: "Remove a player from the guild and every priority list", Admin: true, Options: []Option{
		{Name: ArgMember, Description: "Player to remove", Kind: OptionUser, Required: true},
	}},
}

// Lookup finds a command by name.
func Lookup(name string) (Definition, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Definition{}, false
}

func usage(c Definition) string {
	var b strings.Builder
	b.WriteString("`/" + c.Name)
	for _, o := range c.Options {
		if o.Required {
			fmt.Fprintf(&b, " <%s>", o.Name)
		} else {
			fmt.Fprintf(&b, " [%s]", o.Name)
		}
	}
	b.WriteString("`")
	return b.String()
}

// HelpText lists the commands. Guild master commands are only listed for admins.
func HelpText(admin bool) string {
	var b strings.Builder
	b.WriteString("**📜 Loot Priority Commands**\n\n**👥 General**\n")
	for _, c := range Commands {
		if !c.Admin {
			fmt.Fprintf(&b, "%s - %s\n", usage(c), c.Description)
		}
	}
	if admin {
		b.WriteString("\n**👑 Guild Master**\n")
		for _, c := range Commands {
			if c.Admin {
				fmt.Fprintf(&b, "%s - %s\n", usage(c), c.Description)
			}
		}
	}
	return b.String()
}
