package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/soaringjerry/awap/internal/models"
	"github.com/soaringjerry/awap/internal/progress"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []progress.Event
}

func (p *recordingPublisher) Publish(ev progress.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) last() progress.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func surveyCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("respondent_id,age_group,industry_sector,is_ai_user,ai_comfort_level\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "R%03d,30-49,Finance,%s,%d\n", i, map[bool]string{true: "yes", false: "no"}[i%2 == 0], i%5+1)
	}
	return []byte(b.String())
}

func newTestImports(store *memStore, pub ProgressPublisher, onComplete func(context.Context)) *ImportService {
	svc := NewImportService(store, NewAuditService(store), pub, ImportOptions{MaxBytes: 1 << 20, BatchSize: 4, OnComplete: onComplete})
	n := 0
	svc.newID = func() string { n++; return fmt.Sprintf("imp-%04d-xyz", n) }
	return svc
}

func TestImportFileInsertsAndSkipsDuplicates(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := newMemStore()
	pub := &recordingPublisher{}
	invalidations := 0
	svc := newTestImports(store, pub, func(context.Context) { invalidations++ })
	ctx := context.Background()

	rec, err := svc.ImportFile(ctx, 1, "survey.csv", surveyCSV(10))
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if rec.Status != models.ImportCompleted || rec.TotalRows != 10 || rec.InsertedRows != 10 || rec.SkippedRows != 0 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CompletedAt == nil {
		t.Fatalf("completed_at not stamped")
	}
	if len(store.rows) != 10 || invalidations != 1 {
		t.Fatalf("rows=%d invalidations=%d", len(store.rows), invalidations)
	}
	last := pub.last()
	if !last.Done || last.Processed != 10 {
		t.Fatalf("unexpected final event: %+v", last)
	}
	// 4+4+2 rows: processing, three batches, completion
	if len(pub.events) != 5 {
		t.Fatalf("expected 5 progress events, got %d", len(pub.events))
	}

	again, err := svc.ImportFile(ctx, 1, "survey.csv", surveyCSV(10))
	if err != nil {
		t.Fatalf("re-import error: %v", err)
	}
	if again.InsertedRows != 0 || again.SkippedRows != 10 {
		t.Fatalf("re-import should skip everything: %+v", again)
	}
	if invalidations != 1 {
		t.Fatalf("no-op import must not invalidate the cache")
	}
	if acts := store.auditActions(); len(acts) != 2 || acts[0] != ActionDataImport {
		t.Fatalf("unexpected audit trail: %v", acts)
	}
}

func TestImportRejectsBadUploads(t *testing.T) {
	store := newMemStore()
	svc := newTestImports(store, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		data []byte
		code ErrorCode
	}{
		{"", []byte("x"), ErrorInvalid},
		{"data.json", []byte("{}"), ErrorInvalid},
		{"data.csv", nil, ErrorInvalid},
		{"data.csv", make([]byte, 2<<20), ErrorTooLarge},
	}
	for _, tc := range cases {
		_, err := svc.Submit(ctx, 1, tc.name, tc.data)
		se, ok := AsServiceError(err)
		if !ok || se.Code != tc.code {
			t.Fatalf("%q: expected %s, got %v", tc.name, tc.code, err)
		}
	}
	if len(store.imports) != 0 {
		t.Fatalf("rejected uploads must not create records")
	}
}

func TestImportCountsFailedRows(t *testing.T) {
	store := newMemStore()
	svc := newTestImports(store, nil, nil)
	data := []byte("respondent_id,income_level\nA,1000\nB,plenty\n,2000\n")

	rec, err := svc.ImportFile(context.Background(), 0, "mixed.csv", data)
	if err != nil {
		t.Fatalf("ImportFile error: %v", err)
	}
	if rec.TotalRows != 3 || rec.InsertedRows != 2 || rec.FailedRows != 1 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if _, ok := store.rows["RESP_imp0001x_00003"]; !ok {
		t.Fatalf("expected generated id, have %v", store.rows)
	}
}

func TestImportStoreFailureMarksFailed(t *testing.T) {
	store := newMemStore()
	store.insertFn = func([]models.Respondent) error { return errors.New("db down") }
	pub := &recordingPublisher{}
	svc := newTestImports(store, pub, nil)

	rec, err := svc.ImportFile(context.Background(), 1, "survey.csv", surveyCSV(3))
	if err == nil {
		t.Fatalf("expected failure")
	}
	stored, _ := store.GetImport(context.Background(), rec.ID)
	if stored.Status != models.ImportFailed || !strings.Contains(stored.ErrorMessage, "db down") || stored.CompletedAt == nil {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
	if ev := pub.last(); !ev.Done || ev.Status != models.ImportFailed {
		t.Fatalf("unexpected final event: %+v", ev)
	}
}

func TestSubmitRunsInBackgroundAndWaitDrains(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := newMemStore()
	hub := progress.NewHub()
	svc := newTestImports(store, hub, nil)

	release := make(chan struct{})
	store.insertFn = func([]models.Respondent) error { <-release; return nil }

	rec, err := svc.Submit(context.Background(), 1, "survey.csv", surveyCSV(2))
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if rec.Status != models.ImportPending {
		t.Fatalf("expected pending snapshot, got %s", rec.Status)
	}
	events, cancel := hub.Subscribe(rec.ID)
	defer cancel()

	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	if err := svc.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to time out while blocked, got %v", err)
	}

	close(release)
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	var final progress.Event
	for ev := range events {
		final = ev
	}
	if !final.Done || final.InsertedRows != 2 {
		t.Fatalf("unexpected final event: %+v", final)
	}
	got, err := svc.Get(context.Background(), rec.ID)
	if err != nil || got.Status != models.ImportCompleted {
		t.Fatalf("unexpected stored import: %+v %v", got, err)
	}
	if _, err := svc.Get(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}
