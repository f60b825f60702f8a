package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/gravy-ai/restaurant-assistant/internal/intent"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
)

// Command is one routed chat turn. Each intent decodes into exactly one
// command type carrying what its handler needs.
type Command interface {
	command()
}

type (
	BookTable     struct{ Text string }
	RequestCancel struct{ Text string }
	OrderFood     struct{ Text string }
	FileComplaint struct{ Text string }
	ShowMenu      struct{}
	ChoosePayment struct{ Text string }
	ShowLocation  struct{}
	GuideToTable  struct{}
	CallManager   struct{}
	Chat          struct {
		Text    string
		History []model.Message
	}
)

func (BookTable) command()     {}
func (RequestCancel) command() {}
func (OrderFood) command()     {}
func (FileComplaint) command() {}
func (ShowMenu) command()      {}
func (ChoosePayment) command() {}
func (ShowLocation) command()  {}
func (GuideToTable) command()  {}
func (CallManager) command()   {}
func (Chat) command()          {}

// chatContext is how many earlier messages ground a general chat reply.
const chatContext = 3

// decode builds the command for a resolved intent.
func decode(it intent.Intent, text string, sess *session.Session) Command {
	switch it {
	case intent.BookTable:
		return BookTable{Text: text}
	case intent.CancelBooking, intent.CancelOrder:
		return RequestCancel{Text: text}
	case intent.OrderFood:
		return OrderFood{Text: text}
	case intent.Complaint:
		return FileComplaint{Text: text}
	case intent.MenuInfo:
		return ShowMenu{}
	case intent.PaymentMode:
		return ChoosePayment{Text: text}
	case intent.Location:
		return ShowLocation{}
	case intent.GuideTable:
		return GuideToTable{}
	case intent.MeetManager:
		return CallManager{}
	default:
		return Chat{Text: text, History: priorMessages(sess, chatContext)}
	}
}

// priorMessages returns up to n messages before the current user turn.
func priorMessages(sess *session.Session, n int) []model.Message {
	h := sess.History(n + 1)
	if len(h) > 0 {
		h = h[:len(h)-1]
	}
	return append([]model.Message(nil), h...)
}

func (a *Assistant) dispatch(ctx context.Context, sess *session.Session, cmd Command) workflow.Reply {
	switch c := cmd.(type) {
	case BookTable:
		return a.workflows.BookFromText(ctx, sess, c.Text)
	case RequestCancel:
		return a.workflows.Cancel(ctx, sess, c.Text)
	case OrderFood:
		return a.workflows.OrderFromText(ctx, sess, c.Text)
	case FileComplaint:
		return a.workflows.Complaint(ctx, sess, c.Text)
	case ShowMenu:
		return a.workflows.MenuInfo(ctx, sess)
	case ChoosePayment:
		return a.workflows.Pay(ctx, sess, c.Text)
	case ShowLocation:
		return a.workflows.Location()
	case GuideToTable:
		return a.workflows.GuideTable(ctx, sess)
	case CallManager:
		return a.workflows.MeetManager(ctx, sess)
	case Chat:
		return a.chat(ctx, c)
	default:
		panic(fmt.Sprintf("assistant: unhandled command %T", cmd))
	}
}

func (a *Assistant) chat(ctx context.Context, c Chat) workflow.Reply {
	st := a.workflows.Settings()

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a friendly restaurant assistant for '%s' at %s.\n\n", st.RestaurantName, st.Address)
	sb.WriteString("The customer may ask about catering, delivery, lost items, special events, menu recommendations, prices or anything else not covered elsewhere.\n\n")
	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Respond naturally and conversationally in 2 to 4 sentences.\n")
	sb.WriteString("- For a lost item, show empathy and suggest contacting the restaurant.\n")
	sb.WriteString("- For catering or delivery, explain politely what the restaurant does.\n")
	sb.WriteString("- Mention the restaurant name where relevant.\n")
	if len(c.History) > 0 {
		sb.WriteString("\nContext from last few messages:\n")
		for _, m := range c.History {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
		}
	}
	fmt.Fprintf(&sb, "\nUser: %q\n", c.Text)

	text := ""
	if a.generator != nil {
		text = strings.TrimSpace(a.generator.Generate(ctx, sb.String()))
	}
	if text == "" {
		text = fmt.Sprintf("🙏 Sorry, I'm having a bit of trouble replying right now. Please contact our staff directly at %s for quick help.", st.Phone)
	}
	return workflow.Reply{Text: text}
}
