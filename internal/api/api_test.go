package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	qt "github.com/frankban/quicktest"
	"github.com/ougirez/databaker/internal/api"
	"github.com/ougirez/databaker/internal/api/controller"
	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/render"
	"github.com/ougirez/databaker/internal/pkg/store/storetest"
	"github.com/ougirez/databaker/internal/pkg/utils"
	"github.com/ougirez/databaker/internal/service/denormalize"
	"github.com/ougirez/databaker/internal/service/explorer"
	"github.com/spf13/viper"
)

type fixture struct {
	mem    *storetest.Memory
	svc    *api.APIService
	cookie *http.Cookie
}

func newFixture(c *qt.C) *fixture {
	viper.Set(constants.ViperSecretKey, "api-test-secret")
	c.Cleanup(func() { viper.Set(constants.ViperSecretKey, "") })

	published := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	mem := storetest.New()
	mem.Charts = []*domain.ChartRow{
		{ID: 1, PublishedAt: &published, IsIndexable: true,
			Config: []byte(`{"slug":"gdp","title":"GDP","type":"LineChart","hasChartTab":true,"dimensions":[{"variableId":10}]}`)},
	}
	mem.Entities = []*domain.Entity{{ID: 1, Code: "FRA", Name: "France", Validated: true}}
	mem.Variables = []*domain.Variable{{ID: 10, Name: "GDP", DatasetID: 1}}
	mem.DataValues = []*domain.DataValue{{VariableID: 10, EntityID: 1, Year: 2015, Value: "100"}}
	mem.EntityNames = map[int64]string{1: "France"}
	mem.Datasets = []*domain.Dataset{{ID: 1, Name: "Economy"}}

	list, err := countries.New([]domain.Country{{Name: "France", Code: "FRA"}})
	c.Assert(err, qt.IsNil)
	renderer, err := render.New()
	c.Assert(err, qt.IsNil)
	catalog, err := explorer.LoadCatalog("")
	c.Assert(err, qt.IsNil)

	job := denormalize.NewJob(mem, list)
	cntrl := controller.NewController(controller.Deps{
		Store:     mem,
		Explorers: catalog,
		Countries: list,
		Renderer:  renderer,
		Runner:    denormalize.NewRunner(job, true),
	})
	svc, err := api.NewAPIService(cntrl, []string{"http://localhost:3000"})
	c.Assert(err, qt.IsNil)

	token, err := utils.GenerateAuthToken(&utils.AuthTokenWrapper{UserID: 7})
	c.Assert(err, qt.IsNil)

	return &fixture{
		mem:    mem,
		svc:    svc,
		cookie: &http.Cookie{Name: constants.CookieKeyAuthToken, Value: token},
	}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}
	rec := httptest.NewRecorder()
	f.svc.Router().ServeHTTP(rec, req)
	return rec
}

func errorBody(c *qt.C, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	var resp domain.ErrorResponse
	c.Assert(sonic.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	return resp
}

func TestAuth(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.cookie = nil

	rec := f.do(http.MethodGet, "/api/v1/charts", "")
	c.Check(rec.Code, qt.Equals, http.StatusUnauthorized)
	c.Check(errorBody(c, rec).Message, qt.Equals, "missing auth cookie")

	f.cookie = &http.Cookie{Name: constants.CookieKeyAuthToken, Value: "garbage"}
	rec = f.do(http.MethodGet, "/api/v1/charts", "")
	c.Check(rec.Code, qt.Equals, http.StatusUnauthorized)
}

func TestDatasetRoutes(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	rec := f.do(http.MethodGet, "/api/v1/datasets/1/csv", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Equals, "Entity,Year,GDP\nFrance,2015,100\n")
	c.Check(rec.Header().Get("Content-Disposition"), qt.Equals, `attachment; filename="Economy.csv"`)

	rec = f.do(http.MethodGet, "/api/v1/datasets/99/csv", "")
	c.Check(rec.Code, qt.Equals, http.StatusNotFound)

	rec = f.do(http.MethodGet, "/api/v1/datasets/abc/datapackage", "")
	c.Check(rec.Code, qt.Equals, http.StatusBadRequest)

	rec = f.do(http.MethodGet, "/api/v1/datasets/1/datapackage", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Contains, `"path":"Economy.csv"`)

	rec = f.do(http.MethodPut, "/api/v1/datasets/1/tags", `{"tagIds":[0]}`)
	c.Check(rec.Code, qt.Equals, http.StatusBadRequest)

	rec = f.do(http.MethodPut, "/api/v1/datasets/1/tags", `{"tagIds":[5,2]}`)
	c.Check(rec.Code, qt.Equals, http.StatusOK)
	c.Check(f.mem.DatasetTags[1], qt.DeepEquals, []int64{2, 5})
}

func TestDatasetCSVStoreFailure(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.mem.Errors = map[string]error{"ListDatasetValues": errors.New("connection reset")}

	rec := f.do(http.MethodGet, "/api/v1/datasets/1/csv", "")
	c.Check(rec.Code, qt.Equals, http.StatusInternalServerError)
	c.Check(rec.Header().Get("Content-Disposition"), qt.Equals, "")
	c.Check(errorBody(c, rec).Message, qt.Equals, "store.ListDatasetValues: connection reset")
}

func TestChartsAndExplorers(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	rec := f.do(http.MethodGet, "/api/v1/charts", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	var list []domain.ChartListItem
	c.Assert(sonic.Unmarshal(rec.Body.Bytes(), &list), qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Check(list[0].Slug, qt.Equals, "gdp")

	rec = f.do(http.MethodGet, "/api/v1/explorers", "")
	c.Check(rec.Code, qt.Equals, http.StatusOK)
	c.Check(strings.TrimSpace(rec.Body.String()), qt.Equals, "[]")
}

func TestDenormalizeAndPreview(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	rec := f.do(http.MethodGet, "/api/v1/countries/france/preview", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Not(qt.Contains), "/grapher/gdp")

	rec = f.do(http.MethodGet, "/api/v1/denormalize", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(strings.TrimSpace(rec.Body.String()), qt.Equals, `{"running":0}`)

	rec = f.do(http.MethodPost, "/api/v1/denormalize", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Contains, `"rowsWritten":1`)

	rec = f.do(http.MethodGet, "/api/v1/denormalize", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Contains, `"rowsWritten":1`)
	c.Check(rec.Body.String(), qt.Contains, `"finishedAt":`)
	c.Check(rec.Body.String(), qt.Not(qt.Contains), `"error"`)

	rec = f.do(http.MethodGet, "/api/v1/countries/france/preview", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Check(rec.Body.String(), qt.Contains, "/grapher/gdp?tab=chart&amp;country=FRA")

	rec = f.do(http.MethodGet, "/api/v1/countries/atlantis/preview", "")
	c.Check(rec.Code, qt.Equals, http.StatusNotFound)
	c.Check(errorBody(c, rec).Message, qt.Equals, "no such country: atlantis")
}
