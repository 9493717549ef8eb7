package poll

import (
	"strings"

	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

const (
	SelectActionPrefix = "select_"
	ClearActionID      = "remove_vote"

	PromptText    = "Which days can you attend next week?"
	ClearLabel    = "Click the button below to remove all of your selections."
	SelectCaption = "Select"
	ClearCaption  = "Remove selections"
	ReportCaption = "Here are the attendance results."
)

// Prompt builds the poll message: one button per category in order, followed by
// the clear-my-vote button.
func Prompt(categories []model.Category) gateway.Message {
	buttons := make([]gateway.Button, 0, len(categories)+1)
	for _, c := range categories {
		buttons = append(buttons, gateway.Button{
			Label:    "*" + string(c) + "*",
			Text:     SelectCaption,
			ActionID: SelectActionPrefix + strings.ToLower(string(c)),
			Value:    string(c),
		})
	}
	buttons = append(buttons, gateway.Button{
		Label:    ClearLabel,
		Text:     ClearCaption,
		ActionID: ClearActionID,
		Value:    ClearActionID,
	})
	return gateway.Message{Text: PromptText, Buttons: buttons}
}

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionSelect
	ActionClear
)

func (k ActionKind) String() string {
	switch k {
	case ActionSelect:
		return "select"
	case ActionClear:
		return "clear"
	default:
		return "unknown"
	}
}

// ParseAction classifies a clicked button. For selections the category is
// taken from the button value.
func ParseAction(a gateway.Action) (ActionKind, model.Category) {
	switch {
	case a.ActionID == ClearActionID:
		return ActionClear, ""
	case strings.HasPrefix(a.ActionID, SelectActionPrefix):
		return ActionSelect, model.Category(a.Value)
	default:
		return ActionUnknown, ""
	}
}
