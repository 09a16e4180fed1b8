package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/models"
)

type fakeService struct {
	report   *models.AnalysisReport
	err      error
	overview *models.MarketOverview
	trending []models.TrendingCoin
	marketEr error
	health   models.APIHealth
	queries  []string
}

func (f *fakeService) AnalyzeToken(ctx context.Context, query string) (*models.AnalysisReport, error) {
	f.queries = append(f.queries, query)
	return f.report, f.err
}

func (f *fakeService) MarketOverview(ctx context.Context) (*models.MarketOverview, error) {
	return f.overview, f.marketEr
}

func (f *fakeService) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	return f.trending, f.marketEr
}

func (f *fakeService) Health(ctx context.Context) models.APIHealth {
	return f.health
}

type fakeInsights struct {
	kind    gpt.AnalysisType
	err     error
	jsonErr error
}

func (f *fakeInsights) AnalyzeReportJSON(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType) (map[string]interface{}, error) {
	f.kind = kind
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return map[string]interface{}{"outlook": "neutral", "score": 3.0}, nil
}

func (f *fakeInsights) AnalyzeReport(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType, extra string) (*gpt.Analysis, error) {
	f.kind = kind
	if f.err != nil {
		return gpt.FallbackAnalysis(rep), f.err
	}
	return &gpt.Analysis{Format: "text", AnalysisText: "looks fine", AIGenerated: true}, nil
}

func validReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		Query:      "btc",
		Valid:      true,
		DataSource: models.SourceCoinGeckoOnly,
		Token:      &models.TokenMetadata{ID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", CurrentPrice: 65000},
		Sentiment:  models.Sentiment{Label: "Bullish"},
	}
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalysisEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		method     string
		svc        *fakeService
		wantStatus int
		wantBody   string
	}{
		{name: "ok", target: "/v1/analysis?q=btc", svc: &fakeService{report: validReport()}, wantStatus: http.StatusOK, wantBody: `"data_source":"coingecko_only"`},
		{name: "missing query", target: "/v1/analysis?q=%20", svc: &fakeService{}, wantStatus: http.StatusBadRequest, wantBody: "q is required"},
		{name: "no data", target: "/v1/analysis?q=ghost", svc: &fakeService{err: &models.NoDataError{Query: "ghost"}}, wantStatus: http.StatusNotFound},
		{name: "upstream", target: "/v1/analysis?q=btc", svc: &fakeService{err: errors.New("boom")}, wantStatus: http.StatusBadGateway, wantBody: "boom"},
		{name: "wrong method", target: "/v1/analysis?q=btc", method: http.MethodPost, svc: &fakeService{}, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := serve(t, NewServer(Options{Service: tt.svc}), method, tt.target)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing request id")
			}
		})
	}
}

func TestInsightEndpoint(t *testing.T) {
	svc := &fakeService{report: validReport()}

	t.Run("with AI", func(t *testing.T) {
		ai := &fakeInsights{}
		rec := serve(t, NewServer(Options{Service: svc, Insights: ai}), http.MethodGet, "/v1/insight?q=btc&type=risk")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp insightResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if ai.kind != gpt.Risk || !resp.Analysis.AIGenerated || resp.Report.Query != "btc" {
			t.Errorf("resp = %+v, kind = %s", resp, ai.kind)
		}
		if !strings.Contains(resp.Summary, "Bitcoin (BTC)") {
			t.Errorf("summary = %q", resp.Summary)
		}
	})

	t.Run("AI failure still answers", func(t *testing.T) {
		ai := &fakeInsights{err: errors.New("quota")}
		rec := serve(t, NewServer(Options{Service: svc, Insights: ai}), http.MethodGet, "/v1/insight?q=btc")
		var resp insightResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK || resp.Analysis == nil || resp.Analysis.AIGenerated {
			t.Errorf("status = %d, analysis = %+v", rec.Code, resp.Analysis)
		}
	})

	t.Run("json format", func(t *testing.T) {
		ai := &fakeInsights{}
		rec := serve(t, NewServer(Options{Service: svc, Insights: ai}), http.MethodGet, "/v1/insight?q=btc&type=technical&format=json")
		var resp insightResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusOK || resp.Structured["outlook"] != "neutral" || resp.Analysis != nil {
			t.Errorf("status = %d, resp = %+v", rec.Code, resp)
		}
		if ai.kind != gpt.Technical {
			t.Errorf("kind = %s", ai.kind)
		}
	})

	t.Run("json format falls back to text", func(t *testing.T) {
		ai := &fakeInsights{jsonErr: errors.New("bad response")}
		rec := serve(t, NewServer(Options{Service: svc, Insights: ai}), http.MethodGet, "/v1/insight?q=btc&format=json")
		var resp insightResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Structured != nil || resp.Analysis == nil || !resp.Analysis.AIGenerated {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("without AI", func(t *testing.T) {
		rec := serve(t, NewServer(Options{Service: svc}), http.MethodGet, "/v1/insight?q=btc")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Price Analysis") {
			t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestMarketEndpoint(t *testing.T) {
	ok := &fakeService{
		overview: &models.MarketOverview{ActiveCoins: 10000},
		trending: []models.TrendingCoin{{ID: "pepe", Symbol: "PEPE"}},
	}
	rec := serve(t, NewServer(Options{Service: ok}), http.MethodGet, "/v1/market")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"PEPE"`) {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	down := &fakeService{marketEr: errors.New("no market source")}
	rec = serve(t, NewServer(Options{Service: down}), http.MethodGet, "/v1/market")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "no market source") {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	online := models.UpstreamHealth{Status: models.StatusOnline}
	offline := models.UpstreamHealth{Status: models.StatusOffline, Error: "timeout"}

	tests := []struct {
		name   string
		health models.APIHealth
		want   int
	}{
		{"all online", models.APIHealth{CoinGecko: online, DexScreener: online}, http.StatusOK},
		{"dex offline", models.APIHealth{CoinGecko: online, DexScreener: offline}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, NewServer(Options{Service: &fakeService{health: tt.health}}), http.MethodGet, "/v1/health")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := serve(t, NewServer(Options{Service: &fakeService{}}), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nova_analyses_total 1\n"))
	})
	rec := serve(t, NewServer(Options{Service: &fakeService{}, Metrics: metrics}), http.MethodGet, "/metrics")
	if !strings.Contains(rec.Body.String(), "nova_analyses_total") {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = serve(t, NewServer(Options{Service: &fakeService{}}), http.MethodGet, "/metrics")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unmounted /metrics status = %d", rec.Code)
	}
}
