package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/adapters/http/perf"
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
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore        accountStore.Store
	MemberStore         memberStore.Store
	ClassTypeStore      classTypeStore.Store
	PlanStore           planStore.Store
	SubscriptionStore   subscriptionStore.Store
	LedgerStore         ledgerStore.Store
	ScheduleStore       scheduleStore.Store
	CourseInstanceStore courseInstanceStore.Store
	RegistrationStore   registrationStore.Store
	CheckInStore        checkInStore.Store
}

// loadCSRFKey reads the CSRF secret from GYMDESK_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("GYMDESK_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("GYMDESK_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("GYMDESK_ENV") == "production" {
		log.Fatal("GYMDESK_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set GYMDESK_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string
var emailReplyTo string

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, from, replyTo string) {
	emailSender = sender
	emailFromAddress = from
	emailReplyTo = replyTo
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> Auth -> CSRF -> SecurityHeaders -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}
