package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/metrics"
)

// Review states of staff requests.
const (
	StatusPendingReview = "Pending Review"
	StatusPending       = "Pending"
)

// Cancel logs a cancellation request for staff review. Nothing is
// cancelled until staff approve it.
func (s *Service) Cancel(ctx context.Context, sess *session.Session, text string) Reply {
	if session.IsGuest(sess.Email) {
		return Reply{Text: "⚠️ Please provide your email so I can process the cancellation request."}
	}
	booking := s.ActiveBooking(ctx, sess.Email)
	if booking == nil {
		return Reply{Text: fmt.Sprintf("⚠️ No active booking or order found for %s to cancel.", sess.Email)}
	}

	name := firstNonEmpty(sess.Name, booking.Name, sess.Email)
	table := tableFor(booking, sess)
	err := s.store.Append(ctx, store.SheetCancellations, store.Row{
		"Customer_Name": name,
		"Email":         sess.Email,
		"Table_No":      table,
		"Request":       text,
		"Requested_At":  s.stamp(),
		"Status":        StatusPendingReview,
	})
	if err != nil {
		s.logger.Error("cancellation not recorded", zap.String("email", sess.Email), zap.Error(err))
		return Reply{Text: "⚠️ Sorry, I couldn't send your cancellation request right now. Please ask any of our staff."}
	}

	metrics.RecordStaffRequest("cancellation")
	s.publish(ctx, model.EventCancellationRequested, sess.Email, map[string]any{"table_no": table})
	return Reply{Text: fmt.Sprintf("🛑 Your cancellation request has been sent to our management team, %s. They’ll review your order linked to table #%s and confirm shortly.", name, table)}
}

// Complaint logs a complaint against the customer's active booking.
func (s *Service) Complaint(ctx context.Context, sess *session.Session, text string) Reply {
	if session.IsGuest(sess.Email) {
		return Reply{Text: "⚠️ Could not identify your booking. Please provide your email address so we can assist you quickly."}
	}
	booking := s.ActiveBooking(ctx, sess.Email)
	if booking == nil {
		return Reply{Text: "⚠️ No active booking found for today or within the allowed time window."}
	}

	table := tableFor(booking, sess)
	err := s.store.Append(ctx, store.SheetComplaints, store.Row{
		"Customer_Name": firstNonEmpty(sess.Name, booking.Name, sess.Email),
		"Email":         sess.Email,
		"Table_No":      table,
		"Complaint":     text,
		"Time":          s.clock.Now().Format("2006-01-02 03:04 PM"),
		"Status":        StatusPendingReview,
	})
	if err != nil {
		s.logger.Error("complaint not recorded", zap.String("email", sess.Email), zap.Error(err))
		return Reply{Text: "😔 I'm really sorry to hear that! I couldn't log it automatically, so please let any of our staff know right away."}
	}

	metrics.RecordStaffRequest("complaint")
	s.publish(ctx, model.EventComplaintLogged, sess.Email, map[string]any{"table_no": table})
	return Reply{
		Text:            "😔 I'm really sorry to hear that! Your complaint has been raised and our staff will assist you shortly.",
		ComplaintLogged: true,
	}
}

// MeetManager raises a request for the manager to visit the table.
func (s *Service) MeetManager(ctx context.Context, sess *session.Session) Reply {
	row := store.Row{
		"Name":      firstNonEmpty(sess.Name, session.GuestName),
		"Email":     sess.Email,
		"Table_No":  sess.TableNo,
		"Request":   "Meet Manager",
		"Timestamp": s.stamp(),
		"Status":    StatusPending,
	}
	if b := s.LatestBooking(ctx, sess.Email); b != nil {
		row["Name"] = firstNonEmpty(sess.Name, b.Name)
		row["Table_No"] = tableFor(b, sess)
		row["Booking_Date"] = b.Date
		row["Booking_Time"] = b.Time
	}

	if err := s.store.Append(ctx, store.SheetManager, row); err != nil {
		s.logger.Error("manager request not recorded", zap.String("email", sess.Email), zap.Error(err))
		return Reply{Text: "⚠️ I couldn't reach our staff right now. Please ask any team member nearby for the manager."}
	}

	metrics.RecordStaffRequest("manager")
	s.publish(ctx, model.EventManagerRequested, sess.Email, map[string]any{"table_no": row["Table_No"]})
	return Reply{Text: "👨‍🍳 I've raised a request for you to meet the manager. Someone from our staff will come to your table shortly. 😊"}
}

// StatusMessage composes the customer notification for a staff decision
// on a cancellation or complaint.
func StatusMessage(u model.StatusUpdate) string {
	switch strings.ToLower(strings.TrimSpace(u.Status)) {
	case "cancelled", "canceled", "approved":
		return fmt.Sprintf("✅ Hi %s, your order linked to table %s has been successfully cancelled.", u.Name, u.TableNo)
	case "rejected", "refused", "declined":
		return fmt.Sprintf("❌ Sorry %s, your cancellation request for table %s was not approved.", u.Name, u.TableNo)
	default:
		return fmt.Sprintf("ℹ️ Your request for table %s is still under review.", u.TableNo)
	}
}
