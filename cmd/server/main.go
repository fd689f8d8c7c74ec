package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	emailPkg "gymdesk/internal/adapters/email"
	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/http/perf"
	"gymdesk/internal/adapters/storage"
	accountStore "gymdesk/internal/adapters/storage/account"
	checkInStore "gymdesk/internal/adapters/storage/checkin"
	classTypeStore "gymdesk/internal/adapters/storage/classtype"
	courseInstanceStore "gymdesk/internal/adapters/storage/courseinstance"
	ledgerStore "gymdesk/internal/adapters/storage/ledger"
	memberStore "gymdesk/internal/adapters/storage/member"
	planStore "gymdesk/internal/adapters/storage/plan"
	registrationStore "gymdesk/internal/adapters/storage/registration"
	scheduleStore "gymdesk/internal/adapters/storage/schedule"
	subscriptionStore "gymdesk/internal/adapters/storage/subscription"
	"gymdesk/internal/application/orchestrators"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dbPath := envOrDefault("GYMDESK_DB", "gymdesk.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	// Health check
	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}

	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}

	log.Println("Database initialized successfully!")

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	// Create store instances (using timed DB for query instrumentation)
	acctStore := accountStore.NewSQLiteStore(timedDB)
	ctStore := classTypeStore.NewSQLiteStore(timedDB)
	plStore := planStore.NewSQLiteStore(timedDB)
	schStore := scheduleStore.NewSQLiteStore(timedDB)
	instStore := courseInstanceStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:        acctStore,
		MemberStore:         memberStore.NewSQLiteStore(timedDB),
		ClassTypeStore:      ctStore,
		PlanStore:           plStore,
		SubscriptionStore:   subscriptionStore.NewSQLiteStore(timedDB),
		LedgerStore:         ledgerStore.NewSQLiteStore(timedDB),
		ScheduleStore:       schStore,
		CourseInstanceStore: instStore,
		RegistrationStore:   registrationStore.NewSQLiteStore(timedDB),
		CheckInStore:        checkInStore.NewSQLiteStore(timedDB),
	}

	// Seed default admin account if no accounts exist
	adminInput := orchestrators.SeedAdminInput{
		Email:    envOrDefault("GYMDESK_ADMIN_EMAIL", "admin@gymdesk.local"),
		Password: envOrDefault("GYMDESK_ADMIN_PASSWORD", "change me before go-live"),
	}
	if err := orchestrators.ExecuteSeedAdmin(context.Background(), adminInput, orchestrators.SeedAdminDeps{AccountStore: acctStore}); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Seed default class types and plans
	catalogDeps := orchestrators.SeedCatalogDeps{ClassTypeStore: ctStore, PlanStore: plStore}
	if err := orchestrators.ExecuteSeedCatalog(context.Background(), catalogDeps); err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}

	// Configure email sender
	resendKey := os.Getenv("GYMDESK_RESEND_KEY")
	emailFrom := envOrDefault("GYMDESK_RESEND_FROM", "GymDesk <noreply@gymdesk.local>")
	emailReply := envOrDefault("GYMDESK_REPLY_TO", "frontdesk@gymdesk.local")
	if resendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(resendKey, emailFrom), emailFrom, emailReply)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), emailFrom, emailReply)
		if os.Getenv("GYMDESK_ENV") == "production" {
			log.Println("WARNING: GYMDESK_RESEND_KEY is not set — email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop — set GYMDESK_RESEND_KEY for real delivery)")
		}
	}

	// Background materializer keeps the calendar horizon populated and rolls
	// past instances to completed.
	materializerStopCh := make(chan struct{})
	materializerDeps := orchestrators.MaterializeInstancesDeps{
		ScheduleStore:  schStore,
		ClassTypeStore: ctStore,
		InstanceStore:  instStore,
	}
	orchestrators.StartMaterializerWorker(materializerDeps, orchestrators.DefaultMaterializeHorizonDays, 15*time.Minute, materializerStopCh)
	defer close(materializerStopCh)

	// Run one materialization up front so a fresh install has a calendar.
	today := time.Now()
	initialInput := orchestrators.MaterializeInstancesInput{
		From: today.Format("2006-01-02"),
		To:   today.AddDate(0, 0, orchestrators.DefaultMaterializeHorizonDays).Format("2006-01-02"),
	}
	if _, err := orchestrators.ExecuteMaterializeInstances(context.Background(), initialInput, materializerDeps); err != nil {
		log.Printf("initial materialization failed: %v", err)
	}

	// Create HTTP handler with middleware (pass collector for timing + dashboard)
	mux := web.NewMux("static", stores, collector)

	// Start server
	addr := envOrDefault("GYMDESK_ADDR", ":8080")
	log.Printf("GymDesk %s starting on %s (env=%s)", version, addr, envOrDefault("GYMDESK_ENV", "development"))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
