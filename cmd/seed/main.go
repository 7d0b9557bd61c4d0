package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicstack/clinic-scheduling/internal/db"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
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

	clinics, err := seedClinics(context.Background(), pool, 5)
	if err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedDoctors(context.Background(), pool, clinics, 8); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, clinics, 400); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clinics", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Clinic"

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, name)
		if err != nil {
			return nil, err
		}

		// Open Mon-Sat 09:00-18:00, closed Sunday.
		for dow := 0; dow <= 6; dow++ {
			closed := dow == 0
			_, err := tx.Exec(ctx, `
				INSERT INTO clinic_schedules (clinic_id, day_of_week, is_closed, start_time, end_time)
				VALUES ($1, $2, $3, '09:00:00', '18:00:00')
			`, id, dow, closed)
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("clinics seeded")
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinics []uuid.UUID, perClinic int) error {
	log.Printf("seeding %d doctors per clinic", perClinic)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	durations := []int{15, 30, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, clinicID := range clinics {
		for i := 0; i < perClinic; i++ {
			id := uuid.New()
			name := "Dr. " + gofakeit.Name()
			specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
			fee := float64(gofakeit.Number(20, 120))

			_, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, clinic_id, name, specialty, consultation_fee, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, now(), now())
			`, id, clinicID, name, specialty, fee)
			if err != nil {
				return err
			}

			width := durations[gofakeit.Number(0, len(durations)-1)]
			start := schedule.TimeOfDay(9 * 60)
			end := schedule.TimeOfDay((13 + gofakeit.Number(0, 5)) * 60)

			// Working Mon-Fri inside clinic hours.
			for dow := 1; dow <= 5; dow++ {
				_, err := tx.Exec(ctx, `
					INSERT INTO doctor_schedules (doctor_id, day_of_week, is_active, start_time, end_time, slot_duration_minutes)
					VALUES ($1, $2, true, $3, $4, $5)
				`, id, dow, start.String(), end.String(), width)
				if err != nil {
					return err
				}
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO doctor_settings (doctor_id, default_appointment_duration, allow_custom_duration)
				VALUES ($1, $2, false)
			`, id, width)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, clinics []uuid.UUID, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			phone := gofakeit.Phone()
			clinicID := clinics[gofakeit.Number(0, len(clinics)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, clinic_id, name, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, clinicID, name, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Println("patients seeded")
	return nil
}
