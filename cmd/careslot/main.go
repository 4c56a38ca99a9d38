package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/careslot/careslot/internal/consumer"
	"github.com/careslot/careslot/internal/handlers"
	"github.com/careslot/careslot/internal/inbox"
	"github.com/careslot/careslot/internal/mailer"
	"github.com/careslot/careslot/internal/otp"
	"github.com/careslot/careslot/internal/outbox"
	"github.com/careslot/careslot/internal/policy"
	"github.com/careslot/careslot/internal/storage"
	"github.com/careslot/careslot/libs/config"
	"github.com/careslot/careslot/libs/db"
	"github.com/careslot/careslot/libs/httpx"
	"github.com/careslot/careslot/libs/kafkax"
	"github.com/careslot/careslot/libs/otelx"
	"github.com/careslot/careslot/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "careslot")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 10)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: config.String("REDIS_ADDR", "localhost:6379"),
	})
	defer rdb.Close()

	userRepo := storage.NewUserRepository(pool)
	doctorRepo := storage.NewDoctorRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	prescriptionRepo := storage.NewPrescriptionRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	otpStore := otp.NewStore(rdb)

	sender := mailer.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@careslot.local"),
		config.String("SMTP_USER", ""),
		config.String("SMTP_PASSWORD", ""),
	)

	// With Kafka brokers configured, appointment events flow through the
	// outbox publisher and the mailer consumer. Without them, the direct
	// dispatcher drains the outbox and sends email itself.
	brokers := config.String("KAFKA_BROKERS", "")
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		mailConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "careslot-mailer"),
			Topics: []string{
				outbox.EventAppointmentBooked,
				outbox.EventAppointmentConfirmed,
				outbox.EventAppointmentCancelled,
				outbox.EventAppointmentDone,
				outbox.EventPrescriptionAttached,
			},
		}, func(ctx context.Context, msg kafka.Message) error {
			var payload outbox.AppointmentPayload
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid event payload", "topic", msg.Topic, "err", err)
				return nil
			}
			for _, m := range mailer.Render(msg.Topic, payload) {
				if m.To == "" {
					continue
				}
				if err := sender.Send(m.To, m.Subject, m.Body); err != nil {
					return err
				}
			}
			return nil
		})
		go mailConsumer.Run(ctx)
	} else {
		dispatcher := mailer.NewDispatcher(pool, outboxRepo, sender, logger)
		go dispatcher.Run(ctx)
	}

	resetURL := config.String("RESET_URL", "http://localhost:3000/reset-password")
	adminEmail := config.String("ADMIN_EMAIL", "admin@careslot.local")

	authn := handlers.NewAuthenticator(jwtSecret)
	userAuth := handlers.NewUserAuthHandler(userRepo, otpStore, sender, logger, jwtSecret, resetURL)
	doctorAuth := handlers.NewDoctorAuthHandler(doctorRepo, otpStore, sender, logger, jwtSecret, resetURL)
	users := handlers.NewUserHandler(userRepo)
	doctors := handlers.NewDoctorHandler(doctorRepo, appointmentRepo)
	appointments := handlers.NewAppointmentHandler(appointmentRepo, userRepo, doctorRepo, outboxRepo)
	prescriptions := handlers.NewPrescriptionHandler(prescriptionRepo, appointmentRepo, userRepo, doctorRepo, outboxRepo)
	contact := handlers.NewContactHandler(sender, logger, adminEmail)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}},
	}
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	anyRole := []string{policy.RolePatient, policy.RoleDoctor, policy.RoleAdmin}

	mux.HandleFunc("POST /api/userauth/send-otp", userAuth.SendOTP)
	mux.HandleFunc("POST /api/userauth/register", userAuth.Register)
	mux.HandleFunc("POST /api/userauth/login", userAuth.Login)
	mux.HandleFunc("POST /api/userauth/logout", userAuth.Logout)
	mux.HandleFunc("POST /api/userauth/forgotpassword", userAuth.ForgotPassword)
	mux.HandleFunc("POST /api/userauth/resetpassword/{token}", userAuth.ResetPassword)
	mux.HandleFunc("GET /api/userauth/profile", authn.Require(userAuth.Profile, policy.RolePatient, policy.RoleAdmin))

	mux.HandleFunc("POST /api/doctorauth/send-otp", doctorAuth.SendOTP)
	mux.HandleFunc("POST /api/doctorauth/register", doctorAuth.Register)
	mux.HandleFunc("POST /api/doctorauth/login", doctorAuth.Login)
	mux.HandleFunc("POST /api/doctorauth/logout", doctorAuth.Logout)
	mux.HandleFunc("POST /api/doctorauth/forgotpassword", doctorAuth.ForgotPassword)
	mux.HandleFunc("POST /api/doctorauth/resetpassword/{token}", doctorAuth.ResetPassword)
	mux.HandleFunc("GET /api/doctorauth/profile", authn.Require(doctorAuth.Profile, policy.RoleDoctor))

	mux.HandleFunc("GET /api/user/users", authn.Require(users.List, policy.RoleAdmin))
	mux.HandleFunc("GET /api/user/user/{id}", authn.Require(users.Get, policy.RoleAdmin))
	mux.HandleFunc("PATCH /api/user/update/{id}", authn.Require(users.Update, policy.RolePatient, policy.RoleAdmin))
	mux.HandleFunc("DELETE /api/user/delete/{id}", authn.Require(users.Delete, policy.RolePatient, policy.RoleAdmin))
	mux.HandleFunc("PATCH /api/user/changepassword", authn.Require(users.ChangePassword, policy.RolePatient, policy.RoleAdmin))

	mux.HandleFunc("POST /api/doctor/add", authn.Require(doctors.Add, policy.RoleAdmin))
	mux.HandleFunc("DELETE /api/doctor/delete/{id}", authn.Require(doctors.Delete, policy.RoleAdmin))
	mux.HandleFunc("GET /api/doctor/doctors", authn.Require(doctors.List, policy.RoleAdmin))
	mux.HandleFunc("GET /api/doctor/doctors/specialization/{specialization}", authn.Require(doctors.BySpecialization, anyRole...))
	mux.HandleFunc("GET /api/doctor/doctor/{id}", authn.Require(doctors.Get, policy.RoleDoctor, policy.RoleAdmin))
	mux.HandleFunc("PATCH /api/doctor/update/{id}", authn.Require(doctors.Update, policy.RoleDoctor, policy.RoleAdmin))
	mux.HandleFunc("GET /api/doctor/history/{doctorId}/{patientId}", authn.Require(doctors.History, policy.RoleDoctor, policy.RoleAdmin))

	mux.HandleFunc("POST /api/appointment/add", authn.Require(appointments.Add, policy.RolePatient, policy.RoleAdmin))
	mux.HandleFunc("PATCH /api/appointment/status/{id}", authn.Require(appointments.UpdateStatus, policy.RoleDoctor, policy.RoleAdmin))
	mux.HandleFunc("GET /api/appointment/patient", authn.Require(appointments.ListForPatient, policy.RolePatient))
	mux.HandleFunc("GET /api/appointment/doctor", authn.Require(appointments.ListForDoctor, policy.RoleDoctor))
	mux.HandleFunc("GET /api/appointment/appointments", authn.Require(appointments.ListAll, policy.RoleAdmin))
	mux.HandleFunc("GET /api/appointment/booked-slots", authn.Require(appointments.BookedSlots, anyRole...))
	mux.HandleFunc("GET /api/appointment/slots", authn.Require(appointments.Slots, anyRole...))
	mux.HandleFunc("GET /api/appointment/history/{userId}", authn.Require(appointments.History, policy.RoleAdmin))
	mux.HandleFunc("GET /api/appointment/search", authn.Require(appointments.Search, policy.RoleAdmin))

	mux.HandleFunc("POST /api/prescription/add", authn.Require(prescriptions.Add, policy.RoleDoctor))
	mux.HandleFunc("GET /api/prescription/prescription/{appointmentId}", authn.Require(prescriptions.Get, anyRole...))
	mux.HandleFunc("GET /api/prescription/prescriptions", authn.Require(prescriptions.ListAll, policy.RoleAdmin))

	mux.HandleFunc("POST /api/email/contact", contact.Send)

	rateLimit := config.Int("RATE_LIMIT", 100)
	rateWindow := time.Duration(config.Int("RATE_WINDOW_SECONDS", 60)) * time.Second
	var rateLimitMW httpx.Middleware
	if config.Bool("RATE_LIMIT_REDIS", true) {
		rl := httpx.NewRedisRateLimiter(rdb, rateLimit, rateWindow, config.String("RATE_LIMIT_PREFIX", "careslot:rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		rl := httpx.NewRateLimiter(rateLimit, rateWindow)
		rateLimitMW = rl.Middleware()
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   strings.Split(config.String("CORS_ORIGINS", "http://localhost:3000"), ","),
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		rateLimitMW,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
