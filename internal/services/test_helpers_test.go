package services_test

import (
	"time"

	"github.com/solovoro/solovoro-api/internal/repository"
	"github.com/solovoro/solovoro-api/pkg/logger"
)

func init() {
	// Initialize logger for tests
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

var baseDate = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// day returns a pointer to baseDate shifted by n days.
func day(n int) *time.Time {
	t := baseDate.AddDate(0, 0, n)
	return &t
}

func post(id, slug string, date *time.Time, authorID string) repository.MemoryPost {
	return repository.MemoryPost{
		ID:        id,
		Slug:      slug,
		Date:      date,
		UpdatedAt: baseDate,
		AuthorID:  authorID,
	}
}
