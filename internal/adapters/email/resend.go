package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// resendBatchMax is the most emails Resend accepts in one batch call.
const resendBatchMax = 100

// ResendSender delivers mail through the Resend API. It is the production
// sender; class cancellation notices are its main traffic.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender using apiKey, with from as the default
// sender address for requests that leave From empty.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// toParams maps a SendRequest onto the Resend request shape, filling in
// the default from address.
func (s *ResendSender) toParams(req SendRequest) *resend.SendEmailRequest {
	from := req.From
	if from == "" {
		from = s.from
	}
	p := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if req.ReplyTo != "" {
		p.ReplyTo = req.ReplyTo
	}
	return p
}

// Send delivers a single email.
// PRE: req has at least one recipient and a subject
// POST: email accepted by Resend; returns its message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.toParams(req))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: sent.Id,
		SentAt:    time.Now(),
	}, nil
}

// SendBatch delivers emails in chunks of resendBatchMax. A cancelled class
// can notify a full roster in one call.
// PRE: reqs may be empty (no-op)
// POST: returns results in request order; on a failed chunk, results for
// prior chunks are still returned alongside the error
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	var results []SendResult
	for i := 0; i < len(reqs); i += resendBatchMax {
		end := i + resendBatchMax
		if end > len(reqs) {
			end = len(reqs)
		}
		chunk := reqs[i:end]

		params := make([]*resend.SendEmailRequest, 0, len(chunk))
		for _, req := range chunk {
			params = append(params, s.toParams(req))
		}

		resp, err := s.client.Batch.SendWithContext(ctx, params)
		if err != nil {
			slog.Error("resend_batch_failed", "error", err, "batch_size", len(chunk))
			return results, fmt.Errorf("resend batch send failed: %w", err)
		}

		for _, item := range resp.Data {
			results = append(results, SendResult{
				MessageID: item.Id,
				SentAt:    time.Now(),
			})
		}
		slog.Info("resend_batch_sent", "count", len(chunk), "total_sent", len(results))
	}

	return results, nil
}
