// Package webhook builds and delivers the owner-facing participant
// export. The export is a read-only projection of data the core has
// already produced: confirmed participants (contact details gated by
// each participant's consent flag) plus the host's payment handle.
// It carries no admission semantics.
package webhook

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

// Participant is one confirmed booking in the export. Name and Email
// are blank when the participant has not consented to sharing.
type Participant struct {
    Name      string `json:"name,omitempty"`
    Email     string `json:"email,omitempty"`
    PartySize uint32 `json:"party_size"`
    Consented bool   `json:"consented"`
}

// ExportPayload is the JSON document POSTed to the owner's webhook.
type ExportPayload struct {
    ExportID          string        `json:"export_id"`
    SlotID            uint64        `json:"slot_id"`
    SlotName          string        `json:"slot_name"`
    SlotDate          string        `json:"slot_date"`
    HostName          string        `json:"host_name,omitempty"`
    HostPaymentHandle string        `json:"host_payment_handle,omitempty"`
    Participants      []Participant `json:"participants"`
    GeneratedAt       string        `json:"generated_at"`
}

// BuildExport assembles the payload for a slot. Contact fields of
// non-consenting participants are withheld; the row itself stays so
// the owner can still see the headcount.
func BuildExport(slot *model.Slot, host repository.User, confirmed []repository.ConfirmedParticipant) ExportPayload {
    parts := make([]Participant, 0, len(confirmed))
    for _, c := range confirmed {
        p := Participant{PartySize: c.PartySize, Consented: c.ConsentShare}
        if c.ConsentShare {
            p.Name = c.GuestName
            if p.Name == "" {
                p.Name = c.DisplayName
            }
            p.Email = c.GuestEmail
        }
        parts = append(parts, p)
    }
    return ExportPayload{
        ExportID:          uuid.NewString(),
        SlotID:            slot.ID,
        SlotName:          slot.Name,
        SlotDate:          slot.Date.Format("2006-01-02"),
        HostName:          host.DisplayName,
        HostPaymentHandle: host.PaymentHandle,
        Participants:      parts,
        GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
    }
}

// Sender delivers export payloads to owner-supplied URLs.
type Sender struct {
    client *http.Client
}

// NewSender returns a Sender with a bounded request timeout.
func NewSender() *Sender {
    return &Sender{client: &http.Client{Timeout: 10 * time.Second}}
}

// Send POSTs the payload as JSON to target. Only http and https
// URLs are accepted. Any non-2xx response is reported as an error so
// the handler can tell the owner the delivery failed; the export has
// no effect on core state either way.
func (s *Sender) Send(ctx context.Context, target string, payload ExportPayload) error {
    u, err := url.Parse(target)
    if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
        return fmt.Errorf("invalid webhook url %q", target)
    }
    body, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("marshal export: %w", err)
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := s.client.Do(req)
    if err != nil {
        return fmt.Errorf("webhook delivery: %w", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return fmt.Errorf("webhook delivery: unexpected status %d", resp.StatusCode)
    }
    return nil
}
