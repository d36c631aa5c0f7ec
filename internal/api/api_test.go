package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andy/invoicer/internal/auth"
	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/logging"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/andy/invoicer/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "jwt-test-secret"

type fakeAuth struct {
	login func(ctx context.Context, input service.LoginInput) (*service.Session, error)
}

func (f *fakeAuth) Login(ctx context.Context, input service.LoginInput) (*service.Session, error) {
	return f.login(ctx, input)
}

type fakeClients struct {
	service.ClientService
	list func(ctx context.Context) ([]*domain.Client, error)
}

func (f *fakeClients) List(ctx context.Context) ([]*domain.Client, error) {
	return f.list(ctx)
}

type fakeInvoices struct {
	service.InvoiceService
	create      func(ctx context.Context, input service.InvoiceInput) (*domain.Invoice, error)
	get         func(ctx context.Context, id int64) (*domain.Invoice, error)
	changeState func(ctx context.Context, id int64, state domain.InvoiceState) (*domain.Invoice, error)
	export      func(ctx context.Context, year int, w io.Writer) error
}

func (f *fakeInvoices) Create(ctx context.Context, input service.InvoiceInput) (*domain.Invoice, error) {
	return f.create(ctx, input)
}

func (f *fakeInvoices) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	return f.get(ctx, id)
}

func (f *fakeInvoices) ChangeState(ctx context.Context, id int64, state domain.InvoiceState) (*domain.Invoice, error) {
	return f.changeState(ctx, id, state)
}

func (f *fakeInvoices) Export(ctx context.Context, year int, w io.Writer) error {
	return f.export(ctx, year, w)
}

type fakeHistory struct {
	list func(ctx context.Context, table string, id int64, limit, offset uint64) ([]*history.Record, error)
}

func (f *fakeHistory) List(ctx context.Context, table string, id int64, limit, offset uint64) ([]*history.Record, error) {
	return f.list(ctx, table, id, limit, offset)
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T, services Services, hmacSecret string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(
		config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		services,
		auth.NewTokens(testSecret, time.Hour),
		auth.NewPackets(hmacSecret),
		logging.Discard(),
		prometheus.NewRegistry(),
	)
}

func testToken(t *testing.T, id int64) string {
	t.Helper()
	user := domain.NewUser("Ann", "Admin", "ann@example.com", "hash")
	user.ID = id
	token, err := auth.NewTokens(testSecret, time.Hour).Issue(user)
	require.NoError(t, err)
	return token
}

func post(t *testing.T, s *Server, path, token string, data any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{"token": "", "data": json.RawMessage(raw)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Services{}, "")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuards(t *testing.T) {
	clients := &fakeClients{list: func(ctx context.Context) ([]*domain.Client, error) {
		return []*domain.Client{}, nil
	}}
	s := newTestServer(t, Services{
		Clients: clients,
		Auth: &fakeAuth{login: func(context.Context, service.LoginInput) (*service.Session, error) {
			t.Fatal("login must not run for a logged user")
			return nil, nil
		}},
	}, "")

	t.Run("anonymous on protected route", func(t *testing.T) {
		w, _ := post(t, s, "/api/clients/list", "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid bearer", func(t *testing.T) {
		w, resp := post(t, s, "/api/clients/list", "not-a-jwt", map[string]any{})
		assert.Equal(t, StatusApplicationError, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeBearerToken, resp.Error.Code)
	})

	t.Run("logged user on login", func(t *testing.T) {
		w, _ := post(t, s, "/api/auth/login", testToken(t, 1), map[string]any{"email": "a@b.ch", "password": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("logged user", func(t *testing.T) {
		w, resp := post(t, s, "/api/clients/list", testToken(t, 1), map[string]any{})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		assert.JSONEq(t, `{"clients":[]}`, string(resp.Data))
	})
}

func TestLogin(t *testing.T) {
	user := domain.NewUser("Ann", "Admin", "ann@example.com", "hash")
	user.ID = 7

	var got service.LoginInput
	s := newTestServer(t, Services{Auth: &fakeAuth{login: func(ctx context.Context, input service.LoginInput) (*service.Session, error) {
		got = input
		switch input.Password {
		case "good-password":
			return &service.Session{User: user, Token: "signed"}, nil
		case "blocked":
			return nil, &service.LockoutError{Until: time.Now().Add(30*time.Minute + 30*time.Second)}
		default:
			return nil, domain.ErrInvalidCredentials
		}
	}}}, "")

	t.Run("success", func(t *testing.T) {
		w, resp := post(t, s, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": "good-password"})
		require.Equal(t, http.StatusOK, w.Code)

		var data struct {
			Token string         `json:"token"`
			User  map[string]any `json:"user"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, "signed", data.Token)
		assert.Equal(t, float64(7), data.User["id"])
		assert.NotContains(t, data.User, "password")
		assert.Equal(t, "ann@example.com", got.Email)
		assert.NotEmpty(t, got.IP)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		w, resp := post(t, s, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": "nope"})
		assert.Equal(t, StatusApplicationError, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidCredentials, resp.Error.Code)
	})

	t.Run("blocked", func(t *testing.T) {
		_, resp := post(t, s, "/api/auth/login", "", map[string]any{"email": "ann@example.com", "password": "blocked"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeTooManyAttempts, resp.Error.Code)
		assert.Equal(t, float64(30), resp.Error.Details)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, resp := post(t, s, "/api/auth/login", "", map[string]any{"email": "ann@example.com"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	})
}

func TestPacketSignature(t *testing.T) {
	clients := &fakeClients{list: func(ctx context.Context) ([]*domain.Client, error) {
		return nil, nil
	}}
	s := newTestServer(t, Services{Clients: clients}, "hmac-secret")
	packets := auth.NewPackets("hmac-secret")

	send := func(token string, data string) *httptest.ResponseRecorder {
		body := `{"token":"` + token + `","data":` + data + `}`
		req := httptest.NewRequest(http.MethodPost, "/api/clients/list", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+testToken(t, 1))
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	w := send("deadbeef", `{"a":1}`)
	assert.Equal(t, StatusApplicationError, w.Code)
	assert.Contains(t, w.Body.String(), CodePacketNotAuthentic)

	w = send(packets.Sign([]byte(`{"a":1}`)), `{"a":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateInvoice(t *testing.T) {
	var (
		gotInput  service.InvoiceInput
		gotUserID int64
	)
	invoices := &fakeInvoices{create: func(ctx context.Context, input service.InvoiceInput) (*domain.Invoice, error) {
		gotInput = input
		gotUserID, _ = reqctx.UserID(ctx)
		inv := domain.NewInvoice(input.Name, input.ClientID)
		inv.ID = 1
		inv.Number = "000001"
		for _, l := range input.Lines {
			inv.Lines = append(inv.Lines, domain.NewInvoiceLine(1, l.ServiceID, l.Quantity, l.Amount))
		}
		return inv, nil
	}}
	s := newTestServer(t, Services{Invoices: invoices}, "")

	w, resp := post(t, s, "/api/invoices/create", testToken(t, 3), map[string]any{
		"name":     "Test",
		"clientId": 1,
		"services": []map[string]any{{"serviceId": 4, "quantity": 2, "amount": 100}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, int64(3), gotUserID)
	require.Len(t, gotInput.Lines, 1)
	assert.Equal(t, 2.0, gotInput.Lines[0].Quantity)

	var data struct {
		Invoice invoiceDTO `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "200.00", data.Invoice.Amount)
	assert.Equal(t, "CREATED", data.Invoice.State)

	t.Run("invalid line", func(t *testing.T) {
		_, resp := post(t, s, "/api/invoices/create", testToken(t, 3), map[string]any{
			"name":     "Test",
			"clientId": 1,
			"services": []map[string]any{{"serviceId": 4, "quantity": 0, "amount": 100}},
		})
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	})
}

func TestInvoiceErrors(t *testing.T) {
	invoices := &fakeInvoices{
		get: func(ctx context.Context, id int64) (*domain.Invoice, error) {
			return nil, domain.ErrInvoiceNotFound
		},
		changeState: func(ctx context.Context, id int64, state domain.InvoiceState) (*domain.Invoice, error) {
			t.Fatal("unknown states are rejected before the service")
			return nil, nil
		},
		export: func(ctx context.Context, year int, w io.Writer) error {
			return assert.AnError
		},
	}
	s := newTestServer(t, Services{Invoices: invoices}, "")
	token := testToken(t, 1)

	_, resp := post(t, s, "/api/invoices/get", token, map[string]any{"id": 9})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeObjectNotFound, resp.Error.Code)

	_, resp = post(t, s, "/api/invoices/state", token, map[string]any{"id": 9, "state": "ARCHIVED"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)

	w, resp := post(t, s, "/api/invoices/export", token, map[string]any{"year": 2025})
	assert.Equal(t, StatusApplicationError, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnhandled, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, assert.AnError.Error())
}

func TestHistoryList(t *testing.T) {
	var gotFilter repository.HistoryFilter
	s := newTestServer(t, Services{History: &fakeHistory{list: func(ctx context.Context, table string, id int64, limit, offset uint64) ([]*history.Record, error) {
		gotFilter = repository.HistoryFilter{Table: table, TableID: id, Limit: limit, Offset: offset}
		return []*history.Record{{
			ID: 1, Table: table, TableID: id, Kind: history.KindUpdate,
			Value: map[string]any{"name": "ACME SA"}, Changes: map[string]any{"name": "ACME SA"}, UserID: 1,
		}}, nil
	}}}, "")

	w, resp := post(t, s, "/api/history/list", testToken(t, 1), map[string]any{"table": "clients", "id": 4, "limit": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, repository.HistoryFilter{Table: "clients", TableID: 4, Limit: 10}, gotFilter)
	assert.Contains(t, string(resp.Data), `"kind":"UPDATE"`)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Services{}, "")
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `invoicer_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}
