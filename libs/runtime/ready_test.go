package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyz(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	passing := func(context.Context) error { return nil }

	cases := []struct {
		name   string
		checks []ReadyCheck
		want   int
	}{
		{name: "no checks", want: http.StatusOK},
		{name: "all passing", checks: []ReadyCheck{{Name: "db", Check: passing}}, want: http.StatusOK},
		{name: "required failing", checks: []ReadyCheck{{Name: "db", Check: failing}}, want: http.StatusServiceUnavailable},
		{name: "optional failing", checks: []ReadyCheck{{Name: "db", Check: passing}, {Name: "kafka", Check: failing, Optional: true}}, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := NewBaseMuxWithReady(tc.checks...)
			rw := httptest.NewRecorder()
			mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rw.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, rw.Code, rw.Body.String())
			}
		})
	}
}
