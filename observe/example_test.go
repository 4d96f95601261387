package observe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/reqprof/instrument"
	"github.com/jonwraymond/reqprof/observe"
	"github.com/jonwraymond/reqprof/observe/exporters"
)

func ExampleNewChain() {
	cache := instrument.New()
	in := observe.NewInstrumentation(cache, observe.InstrumentationConfig{
		ExcludedRoutes: []string{"/favicon.ico"},
	})
	stages, _ := in.Stages([]string{observe.StageRequestCounter, observe.StageErrorCounter})
	h := observe.NewChain(nil, stages...).Wrap(http.NotFoundHandler())

	for _, path := range []string{"/missing", "/missing", "/favicon.ico"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	for _, r := range cache.Snapshot(time.Now()) {
		fmt.Println(r.Name, r.Labels, r.Value)
	}
	// Output:
	// page_requests map[route:/missing] 2
	// error_count map[] 2
	// error_code_count map[error_code:404] 2
	// error_message_count map[error_message:/missing: Not Found route:/missing] 2
	// page_requests map[route:/favicon.ico] 1
}

func ExampleNewDriver() {
	dir, _ := os.MkdirTemp("", "reqprof-example")
	defer os.RemoveAll(dir)

	exp, err := exporters.NewFileMetricsExporter(filepath.Join(dir, "metrics.log"))
	if err != nil {
		fmt.Println(err)
		return
	}
	cache := instrument.New()
	cache.Bind(observe.Instruments()[0], instrument.RouteKey.String("/")).Add(1)

	d := observe.NewDriver(cache, exp, observe.DriverConfig{Interval: time.Minute, Service: "example"})
	d.Start()
	_ = d.Stop(context.Background())

	fmt.Println(d.Stats().Exports)
	// Output:
	// 1
}

func ExampleErrorMessage() {
	fmt.Println(observe.ErrorMessage("/missing", http.StatusNotFound))
	// Output:
	// /missing: Not Found
}
