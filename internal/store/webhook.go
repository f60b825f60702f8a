package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

// WebhookGateway talks to a spreadsheet through an Apps Script web app.
//
//	GET  ?sheet=<name>               -> {"data": [...]}
//	POST ?sheet=<name>               body: row object
//	POST ?sheet=<name>&mode=update   body: {"data": "<json {keyColumn,key,updateValues}>"}
type WebhookGateway struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewWebhookGateway creates a gateway with a fixed request timeout.
func NewWebhookGateway(baseURL string, timeout time.Duration, log *logger.Logger) *WebhookGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.OrNop(log).Named("store.webhook"),
	}
}

type webhookResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

// Fetch implements Gateway.
func (g *WebhookGateway) Fetch(ctx context.Context, sheet string) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(sheet, false), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	body, err := g.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sheet, err)
	}

	var resp webhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s: decode: %v: %w", sheet, err, ErrService)
	}
	if resp.Status == "error" {
		return nil, fmt.Errorf("fetch %s: %s: %w", sheet, resp.Message, ErrService)
	}

	rows, err := decodeRows(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", sheet, err, ErrService)
	}
	return rows, nil
}

// Append implements Gateway.
func (g *WebhookGateway) Append(ctx context.Context, sheet string, row Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return g.post(ctx, g.endpoint(sheet, false), payload, "append "+sheet)
}

// UpdateByKey implements Gateway.
func (g *WebhookGateway) UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields Row) error {
	inner, err := json.Marshal(struct {
		KeyColumn    string `json:"keyColumn"`
		Key          string `json:"key"`
		UpdateValues Row    `json:"updateValues"`
	}{keyColumn, keyValue, fields})
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"data": string(inner)})
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}
	return g.post(ctx, g.endpoint(sheet, true), payload, "update "+sheet)
}

func (g *WebhookGateway) post(ctx context.Context, endpoint string, payload []byte, op string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := g.do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var resp webhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// Some script deployments answer with plain text on success.
		g.logger.Debug("non-JSON store response", zap.String("op", op), zap.ByteString("body", body))
		return nil
	}
	if resp.Status != "" && resp.Status != "success" {
		if strings.Contains(strings.ToLower(resp.Message), "not found") {
			return fmt.Errorf("%s: %s: %w", op, resp.Message, ErrNotFound)
		}
		return fmt.Errorf("%s: %s: %w", op, resp.Message, ErrService)
	}
	return nil
}

func (g *WebhookGateway) do(req *http.Request) ([]byte, error) {
	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrService)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %v: %w", err, ErrService)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %w", res.StatusCode, ErrService)
	}
	return body, nil
}

func (g *WebhookGateway) endpoint(sheet string, update bool) string {
	q := url.Values{}
	q.Set("sheet", sheet)
	if update {
		q.Set("mode", "update")
	}
	sep := "?"
	if strings.Contains(g.baseURL, "?") {
		sep = "&"
	}
	return g.baseURL + sep + q.Encode()
}

// decodeRows accepts either a list of objects or a header row followed by
// value rows. Blank value rows are skipped.
func decodeRows(items []json.RawMessage) ([]Row, error) {
	if len(items) == 0 {
		return nil, nil
	}

	first := bytes.TrimSpace(items[0])
	if len(first) > 0 && first[0] == '[' {
		return decodeTabular(items)
	}

	rows := make([]Row, 0, len(items))
	for _, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		row := make(Row, len(obj))
		for k, v := range obj {
			row[k] = stringify(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeTabular(items []json.RawMessage) ([]Row, error) {
	var header []any
	if err := json.Unmarshal(items[0], &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(stringify(h))
	}

	rows := make([]Row, 0, len(items)-1)
	for _, item := range items[1:] {
		var values []any
		if err := json.Unmarshal(item, &values); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		rows = appendTabularRow(rows, cols, values)
	}
	return rows, nil
}

func appendTabularRow(rows []Row, cols []string, values []any) []Row {
	row := make(Row, len(cols))
	blank := true
	for i, col := range cols {
		if col == "" {
			continue
		}
		v := ""
		if i < len(values) {
			v = stringify(values[i])
		}
		if strings.TrimSpace(v) != "" {
			blank = false
		}
		row[col] = v
	}
	if blank {
		return rows
	}
	return append(rows, row)
}

// stringify coerces a decoded JSON value to its cell text. nil becomes "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
