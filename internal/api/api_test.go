package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/models"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/testutil"
)

// testEnv wires a service with a fixed clock behind the router. An empty
// token disables auth.
func testEnv(t *testing.T, token string) (*registry.Service, http.Handler) {
	t.Helper()
	clock := &testutil.Clock{T: time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)}
	svc, _ := testutil.TestService(t, registry.WithClock(clock.Now))
	sseStub := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return svc, NewRouter(svc, history.NewExpandState(), token != "", token, sseStub)
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func createClient(t *testing.T, h http.Handler) models.Client {
	t.Helper()
	w := do(t, h, http.MethodPost, "/clients", ClientRequest{
		Nome:       "Maria Silva",
		CPF:        "123.456.789-09",
		Telefone:   "11987654321",
		Bicicletas: []BicycleRequest{{Modelo: "Caloi 10", Marca: "Caloi", Cor: "Azul"}},
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create client = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[models.Client](t, w)
}

func TestClientCRUD(t *testing.T) {
	_, router := testEnv(t, "")
	c := createClient(t, router)

	w := do(t, router, http.MethodGet, "/clients/"+c.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}

	w = do(t, router, http.MethodPut, "/clients/"+c.ID, ClientRequest{Nome: "Maria S.", CPF: "12345678909"}, "")
	if w.Code != http.StatusOK || decode[models.Client](t, w).Nome != "Maria S." {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/clients", nil, "")
	list := decode[ClientListResponse](t, w)
	if list.Total != 1 {
		t.Errorf("total = %d", list.Total)
	}

	w = do(t, router, http.MethodDelete, "/clients/"+c.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/clients/"+c.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d", w.Code)
	}
}

func TestCreateClientErrors(t *testing.T) {
	_, router := testEnv(t, "")
	createClient(t, router)

	cases := []struct {
		name string
		body any
		want int
	}{
		{"duplicate cpf", ClientRequest{Nome: "Outra", CPF: "12345678909"}, http.StatusConflict},
		{"invalid cpf", ClientRequest{Nome: "Outra", CPF: "12345678900"}, http.StatusBadRequest},
		{"missing nome", ClientRequest{CPF: "11144477735"}, http.StatusBadRequest},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/clients", tc.body, "")
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestBicycleRoutes(t *testing.T) {
	_, router := testEnv(t, "")
	c := createClient(t, router)

	w := do(t, router, http.MethodPost, "/clients/"+c.ID+"/bicycles", BicycleRequest{Modelo: "MTB", Cor: "Verde"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	b := decode[models.Bicycle](t, w)

	w = do(t, router, http.MethodPut, "/clients/"+c.ID+"/bicycles/"+b.ID, BicycleRequest{Modelo: "MTB 29"}, "")
	if w.Code != http.StatusOK {
		t.Errorf("update = %d", w.Code)
	}
	w = do(t, router, http.MethodPost, "/clients/"+c.ID+"/bicycles", BicycleRequest{}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("add without modelo = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/clients/"+c.ID+"/bicycles/"+b.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("remove = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/clients/"+c.ID+"/bicycles/"+b.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("remove twice = %d", w.Code)
	}
}

func TestCheckInOutAndDailyRecords(t *testing.T) {
	_, router := testEnv(t, "")
	c := createClient(t, router)

	w := do(t, router, http.MethodPost, "/registros", CheckInRequest{ClientID: c.ID, BikeID: c.Bicicletas[0].ID}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("check in = %d, body = %s", w.Code, w.Body.String())
	}
	e := decode[models.LogEntry](t, w)

	w = do(t, router, http.MethodPost, "/registros", CheckInRequest{ClientID: c.ID, BikeID: c.Bicicletas[0].ID}, "")
	if w.Code != http.StatusConflict {
		t.Errorf("double check in = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/registros?date=2024-01-05", nil, "")
	day := decode[RecordListResponse](t, w)
	if len(day.Records) != 1 || day.Records[0].ClientName != "Maria Silva" {
		t.Errorf("daily = %+v", day)
	}
	w = do(t, router, http.MethodGet, "/registros?date=05/01/2024", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/registros/"+e.ID+"/checkout", CheckOutRequest{AccessRemoved: true}, "")
	if w.Code != http.StatusOK || !decode[models.LogEntry](t, w).AccessRemoved {
		t.Errorf("check out = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/registros/"+e.ID+"/checkout", nil, "")
	if w.Code != http.StatusConflict {
		t.Errorf("double check out = %d", w.Code)
	}
}

func TestHistoryAndToggles(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/history/summary", nil, "")
	if strings.TrimSpace(w.Body.String()) != "null" {
		t.Errorf("empty summary = %s", w.Body.String())
	}

	c := createClient(t, router)
	do(t, router, http.MethodPost, "/registros", CheckInRequest{ClientID: c.ID, BikeID: c.Bicicletas[0].ID}, "")

	w = do(t, router, http.MethodPost, "/history/years/2024/toggle", nil, "")
	if tr := decode[ToggleResponse](t, w); tr.Key != "2024" || !tr.Expanded {
		t.Errorf("toggle year = %+v", tr)
	}
	w = do(t, router, http.MethodPost, "/history/months/2024/1/toggle", nil, "")
	if tr := decode[ToggleResponse](t, w); tr.Key != "2024-01" || !tr.Expanded {
		t.Errorf("toggle month = %+v", tr)
	}
	w = do(t, router, http.MethodPost, "/history/months/2024/13/toggle", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("month 13 = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/history", nil, "")
	v := decode[history.View](t, w)
	if v.TotalRegistros != 1 || !v.Years[0].Expanded || !v.Years[0].Months[0].Expanded {
		t.Errorf("view = %+v", v)
	}
	if v.Years[0].Months[0].Days[0].Date != "05/01/2024" {
		t.Errorf("day = %+v", v.Years[0].Months[0].Days[0])
	}
}

func TestSearch(t *testing.T) {
	_, router := testEnv(t, "")
	createClient(t, router)

	w := do(t, router, http.MethodGet, "/search?q=silva", nil, "")
	if decode[ClientListResponse](t, w).Total != 1 {
		t.Errorf("search = %s", w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/search", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("search without q = %d", w.Code)
	}
}

func upload(t *testing.T, h http.Handler, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestImportAndExport(t *testing.T) {
	_, router := testEnv(t, "")

	w := upload(t, router, "clientes.csv", "Nome,Telefone,CPF\nAna,21988887777,111.444.777-35\nBad,,12345678900\n")
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	out := decode[ImportResponse](t, w)
	if len(out.Imported) != 1 || out.Message != "1 cliente(s) importado(s) com sucesso!" {
		t.Errorf("outcome = %+v", out)
	}

	w = upload(t, router, "notes.txt", "x")
	if w.Code != http.StatusBadRequest {
		t.Errorf("txt upload = %d", w.Code)
	}
	w = upload(t, router, "broken.xlsx", "x")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Erro ao importar") {
		t.Errorf("broken xlsx = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/export/clients.csv", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("export csv = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename=clientes_2024-01-05.csv` {
		t.Errorf("disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), `"Nome","Número","CPF"`) {
		t.Errorf("csv body = %q", w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/export/clients.pdf", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("pdf client export = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/imports", nil, "")
	if len(decode[ImportListResponse](t, w).Imports) != 1 {
		t.Errorf("imports = %s", w.Body.String())
	}
}

func TestImportStoreFailureIsServerError(t *testing.T) {
	db := testutil.TestDB(t)
	_, files := testutil.TestArea(t)
	svc := registry.NewService(db, files, time.UTC)
	router := NewRouter(svc, history.NewExpandState(), false, "", nil)
	db.Close()

	w := upload(t, router, "clientes.csv", "Nome,Telefone,CPF\nAna,,11144477735\n")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("import on closed store = %d, body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "Erro ao importar") {
		t.Errorf("store failure reported as unreadable file: %s", w.Body.String())
	}
}

func TestClientReport(t *testing.T) {
	_, router := testEnv(t, "")
	c := createClient(t, router)

	w := do(t, router, http.MethodGet, "/clients/"+c.ID+"/report.pdf", nil, "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "Nenhum registro de acesso") {
		t.Errorf("empty report = %d, body = %s", w.Code, w.Body.String())
	}

	do(t, router, http.MethodPost, "/registros", CheckInRequest{ClientID: c.ID, BikeID: c.Bicicletas[0].ID}, "")
	w = do(t, router, http.MethodGet, "/clients/"+c.ID+"/report.pdf", nil, "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf report = %d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Error("not a PDF")
	}
	w = do(t, router, http.MethodGet, "/clients/"+c.ID+"/report.xlsx", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("xlsx report = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/clients/"+c.ID+"/records", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"No estacionamento"`) {
		t.Errorf("records = %s", w.Body.String())
	}
}

func TestResetStorage(t *testing.T) {
	_, router := testEnv(t, "")
	createClient(t, router)
	w := do(t, router, http.MethodDelete, "/storage", nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("reset = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/clients", nil, "")
	if decode[ClientListResponse](t, w).Total != 0 {
		t.Error("clients survived reset")
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := do(t, router, http.MethodGet, "/clients", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/clients", nil, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/clients", nil, "secret123"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/events", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("events with token = %d", w.Code)
	}
}
