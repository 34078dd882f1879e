package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mamadbah2/dairy/internal/repository/memory"
	"github.com/mamadbah2/dairy/internal/server/handlers"
	"github.com/mamadbah2/dairy/internal/service/ledger"
	"github.com/mamadbah2/dairy/internal/service/reporting"
)

func TestRoutesWithoutWhatsApp(t *testing.T) {
	l := ledger.NewService(context.Background(), memory.New(), nil)
	engine := New(
		handlers.NewLedgerHandler(l, nil),
		handlers.NewReportHandler(reporting.NewService(l, nil, nil, "Rs.", nil), nil),
		nil,
		nil,
	)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/farmers", http.StatusOK},
		{http.MethodGet, "/api/rates", http.StatusOK},
		{http.MethodGet, "/api/reports/summary", http.StatusOK},
		{http.MethodGet, "/api/reports/summary.csv", http.StatusOK},
		{http.MethodGet, "/webhook", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}
}
