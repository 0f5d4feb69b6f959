package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/calebdoyle/mailsift/internal/gmail"
)

type fakeClient struct {
	messages    map[gmail.MessageID]gmail.Message
	order       []gmail.MessageID
	getErrs     map[gmail.MessageID]error
	listQueries []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages: map[gmail.MessageID]gmail.Message{},
		getErrs:  map[gmail.MessageID]error{},
	}
}

func (f *fakeClient) add(msg gmail.Message) {
	f.messages[msg.ID] = msg
	f.order = append(f.order, msg.ID)
}

func (f *fakeClient) List(_ context.Context, q gmail.Query, pageToken string, _ int) (gmail.ListPage, error) {
	_ = pageToken
	f.listQueries = append(f.listQueries, q.Raw)
	return gmail.ListPage{IDs: append([]gmail.MessageID(nil), f.order...)}, nil
}

func (f *fakeClient) GetMetadata(_ context.Context, id gmail.MessageID, _ []string) (gmail.MessageMeta, error) {
	return gmail.MessageMeta{ID: id}, nil
}

func (f *fakeClient) GetFull(_ context.Context, id gmail.MessageID) (gmail.Message, error) {
	if err := f.getErrs[id]; err != nil {
		return gmail.Message{}, err
	}
	return f.messages[id], nil
}

func (f *fakeClient) BatchModify(context.Context, []gmail.MessageID, gmail.ModifyOps) error {
	return nil
}

func (f *fakeClient) ListLabels(context.Context) (map[string]gmail.LabelID, map[gmail.LabelID]string, error) {
	return nil, nil, nil
}

func (f *fakeClient) CreateLabel(context.Context, string) (gmail.LabelID, error) {
	return "", nil
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func message(id, from, subject string, date time.Time) gmail.Message {
	return gmail.Message{
		ID: gmail.MessageID(id),
		Headers: map[string]string{
			"From":    from,
			"To":      "me@example.com",
			"Subject": subject,
			"Date":    date.Format(time.RFC1123Z),
		},
		BodyText: "body of " + id,
		Date:     date,
	}
}

func TestRunInclusiveDateRange(t *testing.T) {
	fake := newFakeClient()
	// The server query is one day wide of the range; the local check must
	// keep the last second of the end day and drop the next day.
	lastSecond := time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	fake.add(message("in-range", "a@x.com", "keep", lastSecond))
	fake.add(message("next-year", "b@x.com", "drop", nextDay))

	svc := NewService(fake, nil, slogDiscard())
	var sb strings.Builder
	sum, err := svc.Run(context.Background(), Options{
		Start: day("2023-01-01"),
		End:   day("2023-12-31"),
	}, &sb)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if sum.Archived != 1 || sum.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	out := sb.String()
	if !strings.Contains(out, "Message-ID: in-range") {
		t.Fatalf("archive missing in-range message:\n%s", out)
	}
	if strings.Contains(out, "next-year") {
		t.Fatalf("archive contains out-of-range message:\n%s", out)
	}

	if len(fake.listQueries) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(fake.listQueries))
	}
	if got, want := fake.listQueries[0], "after:2023/01/01 before:2024/01/01"; got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestRunContinuesPastFetchErrors(t *testing.T) {
	fake := newFakeClient()
	date := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	fake.add(message("ok-1", "a@x.com", "first", date))
	fake.add(message("broken", "b@x.com", "second", date))
	fake.add(message("ok-2", "c@y.com", "third", date))
	fake.getErrs["broken"] = errors.New("backend error")

	svc := NewService(fake, nil, slogDiscard())
	var sb strings.Builder
	sum, err := svc.Run(context.Background(), Options{
		Start: day("2023-01-01"),
		End:   day("2023-12-31"),
	}, &sb)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if sum.Archived != 2 || sum.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	// Output preserves fetch order.
	out := sb.String()
	if strings.Index(out, "ok-1") > strings.Index(out, "ok-2") {
		t.Fatalf("messages out of order:\n%s", out)
	}
}

func TestRunRejectsInvertedRange(t *testing.T) {
	svc := NewService(newFakeClient(), nil, slogDiscard())
	_, err := svc.Run(context.Background(), Options{
		Start: day("2023-12-31"),
		End:   day("2023-01-01"),
	}, io.Discard)
	if err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestRunFailsFastOnWriteError(t *testing.T) {
	fake := newFakeClient()
	date := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	fake.add(message("m1", "a@x.com", "s", date))

	svc := NewService(fake, nil, slogDiscard())
	_, err := svc.Run(context.Background(), Options{
		Start: day("2023-01-01"),
		End:   day("2023-12-31"),
	}, failingWriter{})
	if err == nil {
		t.Fatal("expected write failure to abort the run")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestParseDay(t *testing.T) {
	if _, err := ParseDay("2023-02-30"); err == nil {
		t.Fatal("expected error for impossible date")
	}
	if _, err := ParseDay("01/02/2023"); err == nil {
		t.Fatal("expected error for wrong format")
	}
	got, err := ParseDay("2023-12-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2023 || got.Month() != time.December || got.Day() != 31 {
		t.Fatalf("unexpected date: %v", got)
	}
}
