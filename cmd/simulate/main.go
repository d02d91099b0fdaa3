// Contention simulator: every round it aims N concurrent booking requests at
// the same doctor slot and verifies the invariant that exactly one comes back
// confirmed while the rest lose the race.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthmed/booking-service/internal/db"
)

type SimConfig struct {
	APIBaseURL  string
	Workers     int
	Rounds      int
	PostgresDSN string
}

type bookRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type errorBody struct {
	Error string `json:"error"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Workers:     getEnvInt("SIM_WORKERS", 20),
		Rounds:      getEnvInt("SIM_ROUNDS", 10),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	doctors, err := loadIDs(ctx, pool, "SELECT id FROM doctors LIMIT 50")
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	patients, err := loadIDs(ctx, pool, "SELECT id FROM patients LIMIT 500")
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(doctors) == 0 || len(patients) == 0 {
		log.Fatal("no doctors or patients found, run cmd/seed first")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	day := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	var confirmed, conflicts, other int64

	for round := 0; round < cfg.Rounds; round++ {
		doctor := doctors[rand.Intn(len(doctors))]
		start := fmt.Sprintf("%02d:00", 9+round%8)
		end := fmt.Sprintf("%02d:30", 9+round%8)

		var roundConfirmed int64
		var wg sync.WaitGroup

		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				req := bookRequest{
					DoctorID:  doctor.String(),
					PatientID: patients[rand.Intn(len(patients))].String(),
					Date:      day,
					StartTime: start,
					EndTime:   end,
				}

				switch outcome := fire(client, cfg.APIBaseURL, req); outcome {
				case "confirmed":
					atomic.AddInt64(&confirmed, 1)
					atomic.AddInt64(&roundConfirmed, 1)
				case "slot_conflict":
					atomic.AddInt64(&conflicts, 1)
				default:
					atomic.AddInt64(&other, 1)
				}
			}()
		}
		wg.Wait()

		got := atomic.LoadInt64(&roundConfirmed)
		if got > 1 {
			log.Printf("INVARIANT VIOLATION round=%d doctor=%s slot=%s confirmed=%d", round, doctor, start, got)
		} else {
			log.Printf("round=%d doctor=%s slot=%s confirmed=%d", round, doctor, start, got)
		}
	}

	log.Printf("done: confirmed=%d conflicts=%d other=%d", confirmed, conflicts, other)
}

func fire(client *http.Client, baseURL string, req bookRequest) string {
	body, _ := json.Marshal(req)

	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return "transport_error"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return "confirmed"
	}

	var eb errorBody
	if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
		return fmt.Sprintf("status_%d", resp.StatusCode)
	}
	return eb.Error
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
