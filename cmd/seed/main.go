package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthmed/booking-service/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"Pediatrics",
		"Orthopedics",
		"General Practice",
		"Neurology",
	}

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := fmt.Sprintf("dr.%s.%d@healthmed.example", gofakeit.LastName(), i)
		specialty := specialties[i%len(specialties)]

		_, err := pool.Exec(ctx, `
			INSERT INTO doctors (id, name, email, specialty)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO NOTHING
		`, uuid.New(), name, email, specialty)
		if err != nil {
			return err
		}
	}

	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	for i := 0; i < count; i++ {
		name := gofakeit.Name()
		email := fmt.Sprintf("%s.%d@example.com", gofakeit.Username(), i)

		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, name, email)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO NOTHING
		`, uuid.New(), name, email)
		if err != nil {
			return err
		}
	}

	return nil
}
