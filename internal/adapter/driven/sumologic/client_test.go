package sumologic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/finops-adapters/sumo-anycost-go/internal/domain/entity"
	"github.com/finops-adapters/sumo-anycost-go/internal/shared/types"
	"github.com/finops-adapters/sumo-anycost-go/pkg/retry"
)

func fastRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(time.Duration) {},
	}
}

func newTestClient(t *testing.T, serverURL string, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(serverURL),
		WithPollInterval(time.Millisecond),
		WithMaxWait(time.Second),
		WithRetryPolicy(fastRetry()),
	}
	source, err := NewClient("id", "key", "us2", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return source.(*Client)
}

func testWindow() entity.TimeWindow {
	return entity.DayWindow(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
}

func TestEndpointForDeployment(t *testing.T) {
	cases := []struct {
		deployment string
		want       string
		wantErr    bool
	}{
		{"us1", "https://api.sumologic.com/api", false},
		{"PROD", "https://api.sumologic.com/api", false},
		{"eu", "https://api.eu.sumologic.com/api", false},
		{"dub", "https://api.eu.sumologic.com/api", false},
		{"fed", "https://api.fed.sumologic.com/api", false},
		{"mars", "", true},
	}
	for _, tc := range cases {
		got, err := EndpointForDeployment(tc.deployment)
		if tc.wantErr {
			if err == nil {
				t.Errorf("EndpointForDeployment(%q): expected error", tc.deployment)
			}
			continue
		}
		if err != nil {
			t.Errorf("EndpointForDeployment(%q): %v", tc.deployment, err)
			continue
		}
		if got != tc.want {
			t.Errorf("EndpointForDeployment(%q) = %q, want %q", tc.deployment, got, tc.want)
		}
	}
}

func TestFetchUsageSubmitsPollsAndPaginates(t *testing.T) {
	const totalRecords = 1500
	polls := 0
	var submitted searchJobRequest
	var pageOffsets []int

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/jobs", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "key" {
			t.Error("expected basic auth with the access credentials")
		}
		if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
			t.Errorf("decoding submit body: %v", err)
		}
		json.NewEncoder(w).Encode(searchJobHandle{ID: "JOB1"})
	})
	mux.HandleFunc("GET /search/jobs/JOB1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		state := "GATHERING RESULTS"
		if polls >= 3 {
			state = "DONE GATHERING RESULTS"
		}
		json.NewEncoder(w).Encode(searchJobStatus{State: state, RecordCount: totalRecords})
	})
	mux.HandleFunc("GET /search/jobs/JOB1/records", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		pageOffsets = append(pageOffsets, offset)

		count := totalRecords - offset
		if count > limit {
			count = limit
		}
		var page searchJobRecords
		for i := 0; i < count; i++ {
			page.Records = append(page.Records, struct {
				Map map[string]string `json:"map"`
			}{Map: map[string]string{
				"_timeslice":     "1714521600000",
				"quantity":       "1073741824",
				"sourcecategory": fmt.Sprintf("app/svc-%d", offset+i),
			}})
		}
		json.NewEncoder(w).Encode(page)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)
	spec := entity.Categories()[0]

	records, err := client.FetchUsage(context.Background(), spec, testWindow())
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}

	if len(records) != totalRecords {
		t.Fatalf("fetched %d records, want %d", len(records), totalRecords)
	}
	if polls < 3 {
		t.Errorf("expected at least 3 polls, got %d", polls)
	}
	if len(pageOffsets) != 2 || pageOffsets[0] != 0 || pageOffsets[1] != PageSize {
		t.Errorf("page offsets = %v, want [0 %d]", pageOffsets, PageSize)
	}
	if submitted.Query != spec.QueryTemplate {
		t.Error("submitted query does not match the category template")
	}
	if submitted.From != "2024-05-01T00:00:00Z" || submitted.To != "2024-05-02T00:00:00Z" {
		t.Errorf("submitted window %s..%s", submitted.From, submitted.To)
	}
	if !submitted.ByReceiptTime {
		t.Error("continuous ingest queries run by receipt time")
	}
	if v, ok := records[0].Field("quantity"); !ok || v != "1073741824" {
		t.Errorf("first record quantity = %q", v)
	}
}

func TestFetchUsageCancelledJob(t *testing.T) {
	submits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/jobs", func(w http.ResponseWriter, r *http.Request) {
		submits++
		json.NewEncoder(w).Encode(searchJobHandle{ID: "JOB2"})
	})
	mux.HandleFunc("GET /search/jobs/JOB2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchJobStatus{State: "CANCELLED"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchUsage(context.Background(), entity.Categories()[0], testWindow())
	var failed *types.QueryFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected QueryFailedError, got %v", err)
	}
	if failed.JobID != "JOB2" || failed.State != "CANCELLED" {
		t.Errorf("unexpected failure detail %+v", failed)
	}
	// o job cancelado é re-submetido até esgotar as tentativas
	if submits != 2 {
		t.Errorf("expected 2 submits before giving up, got %d", submits)
	}
}

func TestFetchUsageResubmitsCancelledJob(t *testing.T) {
	submits, polls := 0, 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/jobs", func(w http.ResponseWriter, r *http.Request) {
		submits++
		json.NewEncoder(w).Encode(searchJobHandle{ID: "JOB5"})
	})
	mux.HandleFunc("GET /search/jobs/JOB5", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			json.NewEncoder(w).Encode(searchJobStatus{State: "CANCELLED"})
			return
		}
		json.NewEncoder(w).Encode(searchJobStatus{State: "DONE GATHERING RESULTS", RecordCount: 0})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	records, err := client.FetchUsage(context.Background(), entity.Categories()[0], testWindow())
	if err != nil {
		t.Fatalf("expected the cancelled job to be re-submitted: %v", err)
	}
	if submits != 2 {
		t.Errorf("expected 2 submits, got %d", submits)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestFetchUsageTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchJobHandle{ID: "JOB3"})
	})
	mux.HandleFunc("GET /search/jobs/JOB3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchJobStatus{State: "GATHERING RESULTS"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxWait(10*time.Millisecond))

	_, err := client.FetchUsage(context.Background(), entity.Categories()[0], testWindow())
	var timeout *types.QueryTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected QueryTimeoutError, got %v", err)
	}
}

func TestFetchUsageAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchUsage(context.Background(), entity.Categories()[0], testWindow())
	var authErr *types.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Platform != "sumologic" {
		t.Errorf("Platform = %q, want sumologic", authErr.Platform)
	}
}

func TestFetchUsageRetriesTransientFailures(t *testing.T) {
	submits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search/jobs", func(w http.ResponseWriter, r *http.Request) {
		submits++
		if submits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(searchJobHandle{ID: "JOB4"})
	})
	mux.HandleFunc("GET /search/jobs/JOB4", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchJobStatus{State: "DONE GATHERING RESULTS", RecordCount: 0})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, server.URL)

	records, err := client.FetchUsage(context.Background(), entity.Categories()[0], testWindow())
	if err != nil {
		t.Fatalf("expected the 429 to be retried: %v", err)
	}
	if submits != 2 {
		t.Errorf("expected 2 submits, got %d", submits)
	}
	if len(records) != 0 {
		t.Errorf("expected no records for an empty window, got %d", len(records))
	}
}
