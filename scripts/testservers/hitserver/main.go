// Mock hit endpoint for exercising hitgen locally. Counts hits per date
// stamp and can simulate latency and failures.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

type hitCounter struct {
	mu    sync.Mutex
	total int
	dates map[string]int
}

func main() {
	port := flag.Int("port", 8080, "Listening port")
	failRate := flag.Float64("fail-rate", 0, "Fraction of hits answered with HTTP 500 (0.0-1.0)")
	latency := flag.Duration("latency", 0, "Artificial delay per hit")
	flag.Parse()

	if *failRate < 0 || *failRate > 1 {
		log.Fatalf("fail-rate must be between 0.0 and 1.0")
	}

	counter := &hitCounter{dates: make(map[string]int)}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rndMu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		counter.mu.Lock()
		payload := map[string]any{
			"total": counter.total,
			"dates": counter.dates,
		}
		body, err := json.Marshal(payload)
		counter.mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			time.Sleep(*latency)
		}

		counter.mu.Lock()
		counter.total++
		counter.dates[r.URL.Query().Get("date")]++
		counter.mu.Unlock()

		if *failRate > 0 {
			rndMu.Lock()
			fail := rnd.Float64() < *failRate
			rndMu.Unlock()
			if fail {
				http.Error(w, "simulated failure", http.StatusInternalServerError)
				return
			}
		}

		w.WriteHeader(http.StatusCreated)
		fmt.Fprintln(w, "ok")
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("hit server listening on %s (fail-rate=%.2f latency=%s)", addr, *failRate, *latency)
	log.Fatal(http.ListenAndServe(addr, mux))
}
