package notifier

import (
	"time"

	"PriceTracker/internal/model"
)

// Interaction identifiers shared with the chat platform.
const (
	CallbackDateRangeModal = "date_range_modal"
	BlockFromDate          = "from_date_block"
	ActionFromDate         = "from_date"
	BlockToDate            = "to_date_block"
	ActionToDate           = "to_date"
	ActionCheckCurrent     = "check_current_price"
	ActionCheckRange       = "check_price_range"
)

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func plain(s string) *Text    { return &Text{Type: "plain_text", Text: s} }
func markdown(s string) *Text { return &Text{Type: "mrkdwn", Text: s} }

// Element is a Block Kit interactive element.
type Element struct {
	Type        string `json:"type"`
	ActionID    string `json:"action_id,omitempty"`
	Text        *Text  `json:"text,omitempty"`
	Style       string `json:"style,omitempty"`
	InitialDate string `json:"initial_date,omitempty"`
	Placeholder *Text  `json:"placeholder,omitempty"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type      string    `json:"type"`
	BlockID   string    `json:"block_id,omitempty"`
	Text      *Text     `json:"text,omitempty"`
	Accessory *Element  `json:"accessory,omitempty"`
	Elements  []Element `json:"elements,omitempty"`
}

// View is a home tab or modal surface.
type View struct {
	Type       string  `json:"type"`
	CallbackID string  `json:"callback_id,omitempty"`
	Title      *Text   `json:"title,omitempty"`
	Submit     *Text   `json:"submit,omitempty"`
	Close      *Text   `json:"close,omitempty"`
	Blocks     []Block `json:"blocks"`
}

// HomeView builds the home tab showing the current prices.
func HomeView(title string, board *model.PriceBoard, now time.Time) View {
	return View{
		Type: "home",
		Blocks: []Block{
			{Type: "header", Text: plain(title)},
			{Type: "section", Text: markdown("*Date & Time: " + model.FormatDateTime(now) + "*")},
			{Type: "section", Text: markdown("||NAME||PRICE||")},
			{Type: "section", Text: markdown(RenderHomeRows(board))},
			{Type: "actions", Elements: []Element{
				{Type: "button", Text: plain("Check Current Price"), Style: "primary", ActionID: ActionCheckCurrent},
				{Type: "button", Text: plain("📅 Check Price Range"), Style: "danger", ActionID: ActionCheckRange},
			}},
		},
	}
}

// DateRangeModal builds the modal with two date pickers defaulting to today.
func DateRangeModal(today time.Time) View {
	initial := today.UTC().Format(model.DateLayout)
	picker := func(blockID, actionID, label string) Block {
		return Block{
			Type:    "section",
			BlockID: blockID,
			Text:    markdown(label),
			Accessory: &Element{
				Type:        "datepicker",
				ActionID:    actionID,
				InitialDate: initial,
				Placeholder: plain("Choose a date"),
			},
		}
	}
	return View{
		Type:       "modal",
		CallbackID: CallbackDateRangeModal,
		Title:      plain("Select Date Range"),
		Submit:     plain("Submit"),
		Close:      plain("Cancel"),
		Blocks: []Block{
			picker(BlockFromDate, ActionFromDate, "*Select the start date:*"),
			picker(BlockToDate, ActionToDate, "*Select the end date:*"),
			{Type: "section", Text: plain("Tap the date fields to select dates.")},
		},
	}
}

// RangeMessageBlocks builds the message posted after a range query.
func RangeMessageBlocks(iv model.DateInterval, table RenderedTable) []Block {
	return []Block{
		{Type: "section", Text: markdown("*Price Range (" + iv.String() + ")*")},
		{Type: "section", Text: markdown(table.Text)},
	}
}

// DigestBlocks builds the scheduled price digest message.
func DigestBlocks(title string, board *model.PriceBoard, now time.Time) []Block {
	return []Block{
		{Type: "header", Text: plain(title)},
		{Type: "section", Text: markdown("*Date & Time: " + model.FormatDateTime(now) + "*")},
		{Type: "section", Text: markdown(RenderCurrentTable(board).Text)},
	}
}
