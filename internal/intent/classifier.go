package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

// Resolution stages reported in Result.Stage.
const (
	StageExact    = "exact"
	StageFuzzy    = "fuzzy"
	StageRecheck  = "recheck"
	StageDefault  = "default"
	StageAwaiting = "awaiting"
)

// FuzzyCutoff is the minimum similarity for a near-miss label to be accepted.
const FuzzyCutoff = 0.6

// Generator produces text for a prompt, returning "" on any failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) string
}

// Input is what the classifier sees for one turn.
type Input struct {
	Utterance      string
	History        []model.Message
	BookingContext string
}

// Result is a resolved intent and how it was reached.
type Result struct {
	Intent Intent
	Stage  string
	Raw    string
}

// Classifier resolves utterances to intents with a text generator.
type Classifier struct {
	gen    Generator
	logger *logger.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(gen Generator, log *logger.Logger) *Classifier {
	return &Classifier{gen: gen, logger: logger.OrNop(log).Named("intent")}
}

// Classify always returns one of the closed intents; general_chat when
// nothing else can be established.
func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	res := c.classify(ctx, in)
	metrics.RecordIntent(res.Intent.String(), res.Stage)
	c.logger.Debug("intent resolved",
		zap.String("intent", res.Intent.String()),
		zap.String("stage", res.Stage),
		zap.String("raw", res.Raw),
	)
	return res
}

func (c *Classifier) classify(ctx context.Context, in Input) Result {
	if c.gen == nil {
		return Result{Intent: GeneralChat, Stage: StageDefault}
	}

	raw := c.gen.Generate(ctx, classifyPrompt(in))
	norm := Normalize(raw)
	if it, ok := Parse(norm); ok {
		return Result{Intent: it, Stage: StageExact, Raw: raw}
	}
	if it, ok := Closest(norm); ok {
		return Result{Intent: it, Stage: StageFuzzy, Raw: raw}
	}

	recheck := c.gen.Generate(ctx, recheckPrompt(in.Utterance))
	if it, ok := Parse(Normalize(recheck)); ok {
		return Result{Intent: it, Stage: StageRecheck, Raw: recheck}
	}

	if raw != "" || recheck != "" {
		c.logger.Info("unrecognised intent labels", zap.String("raw", raw), zap.String("recheck", recheck))
	}
	return Result{Intent: GeneralChat, Stage: StageDefault, Raw: raw}
}

// Closest returns the label most similar to s when its character-level
// similarity reaches FuzzyCutoff. Earlier labels win ties.
func Closest(s string) (Intent, bool) {
	if s == "" {
		return GeneralChat, false
	}
	a := strings.Split(s, "")
	best, bestRatio := GeneralChat, 0.0
	for i, l := range labels {
		m := difflib.NewMatcher(a, strings.Split(l, ""))
		if r := m.Ratio(); r > bestRatio {
			best, bestRatio = Intent(i), r
		}
	}
	if bestRatio < FuzzyCutoff {
		return GeneralChat, false
	}
	return best, true
}

// BookingContext describes a customer's booking for the classifier prompt.
func BookingContext(b *model.Booking) string {
	if b == nil {
		return "User has no booking."
	}
	return fmt.Sprintf("User has a booking: Table %s, Date: %s, Time: %s.", b.TableNo(), b.Date, b.Time)
}

var examples = []struct{ text, label string }{
	{"I want to book a table for 2 at 8 PM", "book_table"},
	{"Cancel my booking for tomorrow", "cancel_booking"},
	{"I want butter naan and dal tadka", "order_food"},
	{"Where are you located? How do I get there?", "location"},
	{"Do you have other outlets or branches?", "general_chat"},
	{"I have an issue with my order", "complaint"},
	{"I want to meet the manager", "meet_manager"},
	{"Can I talk to staff?", "meet_manager"},
	{"Please send your manager", "meet_manager"},
	{"Hi / How are you?", "general_chat"},
	{"Cancel my food order", "cancel_order"},
	{"Cancel the biryani I ordered", "cancel_order"},
	{"Show me the menu", "menu_info"},
	{"online", "payment_mode"},
	{"Pay by cash", "payment_mode"},
	{"I want to pay via UPI", "payment_mode"},
	{"Where is my table? / Please guide me to my booked table", "guide_table"},
}

func classifyPrompt(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier for a restaurant chatbot called 'Fifty Shades of Gravy'.\n")
	sb.WriteString("Possible intents:\n")
	for _, l := range labels {
		sb.WriteString("- " + l + "\n")
	}
	sb.WriteString("\nIf the message clearly matches one of these, return that intent. Otherwise return general_chat.\n")
	sb.WriteString("Examples:\n")
	for _, ex := range examples {
		fmt.Fprintf(&sb, "- %q -> %s\n", ex.text, ex.label)
	}
	if len(in.History) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, m := range in.History {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Text)
		}
	}
	ctx := in.BookingContext
	if ctx == "" {
		ctx = BookingContext(nil)
	}
	sb.WriteString("\nBooking context for this user:\n" + ctx + "\n")
	sb.WriteString("\nRespond ONLY with one of the above intent labels.\n")
	fmt.Fprintf(&sb, "User message: %q\n", in.Utterance)
	return sb.String()
}

func recheckPrompt(utterance string) string {
	return fmt.Sprintf("Classify this user message into one of these intents only:\n%s.\n\nUser message: %q\nReply with only the intent name, nothing else.\n",
		strings.Join(labels[:], ", "), utterance)
}
