package models

import "strings"

// CommandType enumerates supported operator command categories.
type CommandType string

const (
	CommandMilk    CommandType = "milk"
	CommandPay     CommandType = "pay"
	CommandBalance CommandType = "balance"
	CommandRate    CommandType = "rate"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command represents a parsed operator instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command instance from free-form text messages.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(message)

	cmd := Command{Raw: message, Type: CommandUnknown}
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	switch CommandType(head) {
	case CommandMilk, CommandPay, CommandBalance, CommandRate, CommandHelp:
		cmd.Type = CommandType(head)
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
