package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookFetch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLen  int
		wantCell string
	}{
		{
			name:     "objectRows",
			body:     `{"data":[{"Table":"T1","Availability":"Yes","Seats":4},{"Table":"T2","Availability":null}]}`,
			wantLen:  2,
			wantCell: "4",
		},
		{
			name:     "headerRows",
			body:     `{"data":[["Table ","Availability","Seats"],["T1","Yes",4],["","",""],["T2","No"]]}`,
			wantLen:  2,
			wantCell: "4",
		},
		{
			name:    "empty",
			body:    `{"data":[]}`,
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %s", r.Method)
				}
				if got := r.URL.Query().Get("sheet"); got != SheetTables {
					t.Errorf("sheet = %q", got)
				}
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewWebhookGateway(srv.URL, time.Second, nil)
			rows, err := g.Fetch(context.Background(), SheetTables)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(rows) != tt.wantLen {
				t.Fatalf("len(rows) = %d, want %d", len(rows), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if got := rows[0].Get("Seats"); got != tt.wantCell {
				t.Errorf("Seats = %q, want %q", got, tt.wantCell)
			}
			if got := rows[0].Get("table"); got != "T1" {
				t.Errorf("Get(table) = %q, want T1", got)
			}
			if got := rows[1].Get("Availability"); tt.name == "objectRows" && got != "" {
				t.Errorf("null cell = %q, want empty", got)
			}
		})
	}
}

func TestWebhookNon2xxIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, time.Second, nil)

	if _, err := g.Fetch(context.Background(), SheetMenu); !errors.Is(err, ErrService) {
		t.Errorf("Fetch() error = %v, want ErrService", err)
	}
	if err := g.Append(context.Background(), SheetOrders, Row{"Dish": "Dal Tadka"}); !errors.Is(err, ErrService) {
		t.Errorf("Append() error = %v, want ErrService", err)
	}
}

func TestWebhookAppendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"error","message":"sheet locked"}`)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, time.Second, nil)
	err := g.Append(context.Background(), SheetOrders, Row{"Dish": "Dal Tadka"})
	if !errors.Is(err, ErrService) {
		t.Fatalf("Append() error = %v, want ErrService", err)
	}
}

func TestWebhookUpdatePayload(t *testing.T) {
	var gotMode string
	var inner struct {
		KeyColumn    string            `json:"keyColumn"`
		Key          string            `json:"key"`
		UpdateValues map[string]string `json:"updateValues"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMode = r.URL.Query().Get("mode")
		var outer map[string]string
		if err := json.NewDecoder(r.Body).Decode(&outer); err != nil {
			t.Errorf("decode outer: %v", err)
		}
		if err := json.Unmarshal([]byte(outer["data"]), &inner); err != nil {
			t.Errorf("decode inner: %v", err)
		}
		io.WriteString(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, time.Second, nil)
	err := g.UpdateByKey(context.Background(), SheetTables, "Table", "T3", Row{"Availability": "No"})
	if err != nil {
		t.Fatalf("UpdateByKey() error = %v", err)
	}
	if gotMode != "update" {
		t.Errorf("mode = %q, want update", gotMode)
	}
	if inner.KeyColumn != "Table" || inner.Key != "T3" || inner.UpdateValues["Availability"] != "No" {
		t.Errorf("payload = %+v", inner)
	}
}

func TestWebhookTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	g := NewWebhookGateway(srv.URL, 20*time.Millisecond, nil)
	if _, err := g.Fetch(context.Background(), SheetMenu); !errors.Is(err, ErrService) {
		t.Errorf("Fetch() error = %v, want ErrService", err)
	}
}
