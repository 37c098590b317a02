package swagger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a router with the docs routes", t, func() {
		r := chi.NewRouter()
		Register(r)

		convey.Convey("Then it serves /openapi.yaml", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
			convey.So(w.Body.Len(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("And it serves the docs page", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `spec-url="/openapi.yaml"`)
		})
	})
}

func TestOpenAPIDocument(t *testing.T) {
	convey.Convey("Given the embedded OpenAPI document", t, func() {
		doc, err := yaml.Parser().Unmarshal(OpenAPI)

		convey.Convey("Then it parses and lists every route", func() {
			convey.So(err, convey.ShouldBeNil)
			paths, ok := doc["paths"].(map[string]interface{})
			convey.So(ok, convey.ShouldBeTrue)
			for _, p := range []string{"/healthz", "/participants", "/participants/{id}", "/participants/{id}/rating", "/standings", "/plan", "/games", "/games/sync", "/feedback"} {
				convey.So(paths, convey.ShouldContainKey, p)
			}
		})
	})
}

func TestSwaggerHandlerWithNilRouter(t *testing.T) {
	convey.Convey("Given a nil router", t, func() {
		convey.So(func() { Register(nil) }, convey.ShouldPanic)
	})
}
