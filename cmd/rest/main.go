package main

import (
	"context"
	"log"
	"time"

	"member-portal-be/internal/bootstrap"
	"member-portal-be/internal/config"
	"member-portal-be/internal/server"
	"member-portal-be/internal/tracer"
	"member-portal-be/pkg/database"
)

func main() {
	// 0. Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Configuration
	cfg := config.Load()

	// 2. Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Dependency container
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Background services
	if err := container.AuditRelayService.Start(context.Background()); err != nil {
		log.Printf("Background: audit relay failed to start: %v", err)
	}
	go runDailyJobs(container)

	// 5. HTTP server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}

// runDailyJobs fires the expiry-reminder sweep and the audit retention
// cleanup once every 24 hours.
func runDailyJobs(container *bootstrap.Container) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

		if result, err := container.MembershipService.CheckExpiringMemberships(ctx); err != nil {
			log.Printf("Background: expiring membership check failed: %v", err)
		} else {
			log.Printf("Background: expiry check notified %v, skipped %d duplicates", result.NotifiedByWindow, result.SkippedDuplicates)
		}

		if deleted, err := container.AuditService.CleanupOldLogs(ctx, container.AuditConfig.RetentionDays); err != nil {
			log.Printf("Background: audit cleanup failed: %v", err)
		} else {
			log.Printf("Background: audit cleanup removed %d rows", deleted)
		}

		cancel()
	}
}
