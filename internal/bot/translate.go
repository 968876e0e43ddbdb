package bot

import (
	"strconv"

	"guild-loot/internal/command"

	"github.com/bwmarrin/discordgo"
)

var optionTypes = map[command.OptionKind]discordgo.ApplicationCommandOptionType{
	command.OptionString:  discordgo.ApplicationCommandOptionString,
	command.OptionInteger: discordgo.ApplicationCommandOptionInteger,
	command.OptionUser:    discordgo.ApplicationCommandOptionUser,
}

// ApplicationCommands converts the command table into slash command
// definitions. Guild master commands stay visible to everyone: officers in
// bot.admin_ids need not hold the Discord administrator permission, so the
// dispatcher does the gating.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(command.Commands))
	for _, def := range command.Commands {
		ac := &discordgo.ApplicationCommand{
			Name:        def.Name,
			Description: def.Description,
		}
		for _, o := range def.Options {
			opt := &discordgo.ApplicationCommandOption{
				Type:        optionTypes[o.Kind],
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			}
			if o.Kind == command.OptionInteger {
				minValue := 1.0
				opt.MinValue = &minValue
			}
			ac.Options = append(ac.Options, opt)
		}
		out = append(out, ac)
	}
	return out
}

func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Invocation translates a slash command interaction into a dispatcher call.
func Invocation(i *discordgo.Interaction) command.Invocation {
	data := i.ApplicationCommandData()
	inv := command.Invocation{Command: data.Name, Args: make(map[string]string, len(data.Options))}

	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.CallerID = i.Member.User.ID
		inv.CallerName = displayName(i.Member.User, i.Member)
		inv.CallerAdmin = i.Member.Permissions&discordgo.PermissionAdministrator != 0
	case i.User != nil:
		inv.CallerID = i.User.ID
		inv.CallerName = displayName(i.User, nil)
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			inv.Args[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			inv.Args[opt.Name] = strconv.FormatInt(opt.IntValue(), 10)
		case discordgo.ApplicationCommandOptionUser:
			id, _ := opt.Value.(string)
			inv.Args[opt.Name] = id
			if data.Resolved != nil {
				name := displayName(data.Resolved.Users[id], data.Resolved.Members[id])
				if name != "" {
					inv.Args[opt.Name+"_name"] = name
				}
			}
		}
	}
	return inv
}
