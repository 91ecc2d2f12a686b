package webhook

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/table-slot-booking/internal/model"
    "github.com/iliyamo/table-slot-booking/internal/repository"
)

func exportFixture() (*model.Slot, repository.User, []repository.ConfirmedParticipant) {
    slot := &model.Slot{
        ID:   7,
        Name: "friday dinner",
        Date: time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
    }
    host := repository.User{DisplayName: "Sam", PaymentHandle: "sam@pay.example"}
    confirmed := []repository.ConfirmedParticipant{
        {BookingID: 1, GuestName: "Ada", GuestEmail: "ada@example.com", PartySize: 2, ConsentShare: true},
        {BookingID: 2, GuestName: "Bea", GuestEmail: "bea@example.com", PartySize: 1, ConsentShare: false},
        {BookingID: 3, GuestName: "", DisplayName: "Cal", GuestEmail: "cal@example.com", PartySize: 3, ConsentShare: true},
    }
    return slot, host, confirmed
}

func TestBuildExportWithholdsNonConsenting(t *testing.T) {
    slot, host, confirmed := exportFixture()
    p := BuildExport(slot, host, confirmed)

    assert.NotEmpty(t, p.ExportID)
    assert.Equal(t, uint64(7), p.SlotID)
    assert.Equal(t, "2026-09-04", p.SlotDate)
    assert.Equal(t, "Sam", p.HostName)
    assert.Equal(t, "sam@pay.example", p.HostPaymentHandle)
    require.Len(t, p.Participants, 3)

    assert.Equal(t, "Ada", p.Participants[0].Name)
    assert.Equal(t, "ada@example.com", p.Participants[0].Email)

    // the non-consenting row keeps its headcount but loses contact details
    assert.Empty(t, p.Participants[1].Name)
    assert.Empty(t, p.Participants[1].Email)
    assert.Equal(t, uint32(1), p.Participants[1].PartySize)
    assert.False(t, p.Participants[1].Consented)

    // blank guest name falls back to the profile display name
    assert.Equal(t, "Cal", p.Participants[2].Name)
}

func TestBuildExportUniqueIDs(t *testing.T) {
    slot, host, confirmed := exportFixture()
    a := BuildExport(slot, host, confirmed)
    b := BuildExport(slot, host, confirmed)
    assert.NotEqual(t, a.ExportID, b.ExportID)
}

func TestSenderDelivers(t *testing.T) {
    var got ExportPayload
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, http.MethodPost, r.Method)
        assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
        body, _ := io.ReadAll(r.Body)
        require.NoError(t, json.Unmarshal(body, &got))
        w.WriteHeader(http.StatusOK)
    }))
    defer srv.Close()

    slot, host, confirmed := exportFixture()
    payload := BuildExport(slot, host, confirmed)
    err := NewSender().Send(context.Background(), srv.URL, payload)
    require.NoError(t, err)
    assert.Equal(t, payload.ExportID, got.ExportID)
    assert.Len(t, got.Participants, 3)
}

func TestSenderRejectsBadStatus(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusInternalServerError)
    }))
    defer srv.Close()

    slot, host, confirmed := exportFixture()
    err := NewSender().Send(context.Background(), srv.URL, BuildExport(slot, host, confirmed))
    assert.Error(t, err)
}

func TestSenderRejectsBadURL(t *testing.T) {
    slot, host, confirmed := exportFixture()
    payload := BuildExport(slot, host, confirmed)
    s := NewSender()
    assert.Error(t, s.Send(context.Background(), "", payload))
    assert.Error(t, s.Send(context.Background(), "ftp://example.com/hook", payload))
    assert.Error(t, s.Send(context.Background(), "not a url", payload))
}
