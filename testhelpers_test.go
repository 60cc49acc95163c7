//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	rideEvents "github.com/Kilat-Ride/service-ride-booking/internal/events"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/kafka"
	"github.com/Kilat-Ride/service-ride-booking/internal/repository"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// rideStack holds wired-up booking service components.
type rideStack struct {
	Registry        *application.Registry
	Consumer        *rideEvents.RideStatusConsumer
	Operator        *fakeOperator
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_ride_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_ride_booking sslmode=disable", pgHost, pgPort.Port())

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, repository.AutoMigrate(db))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, ride.TopicRideEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// fakeOperator answers the operator API with one service line, one vehicle
// region and a successful ride request.
type fakeOperator struct {
	authorizations atomic.Int32
}

func (f *fakeOperator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var data interface{}
	switch r.URL.Path {
	case "/api" + session.EndpointAuthorization.Path:
		f.authorizations.Add(1)
		data = session.Pair{SessionID: "sys", SessionIdentifier: "sys-ident"}
	case "/api" + session.EndpointVerifySession.Path, "/api" + session.EndpointServiceArea.Path:
	case "/api" + session.EndpointVerifyOTP.Path:
		data = map[string]interface{}{
			"session_id":         "usr",
			"session_identifier": "usr-ident",
			"customer":           ride.Customer{Name: "Integration Rider", Phone: "5550100", CountryCode: "+1"},
		}
	case "/api" + session.EndpointServices.Path:
		data = []ride.Service{{ID: 1, Name: "City ride", SupportedRideTypes: []int{1}}}
	case "/api" + session.EndpointFareVehicles.Path:
		data = map[string]interface{}{"regions": []ride.VehicleRegion{{RegionID: 10, RegionName: "Sedan", RideType: 1}}}
	case "/api" + session.EndpointRideRequest.Path:
		data = operator.RideReceipt{RideID: "R-" + uuid.NewString()[:8], Status: "searching"}
	default:
		http.NotFound(w, r)
		return
	}
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(operator.Envelope{Flag: ride.FlagSuccess, Message: "ok", Data: raw})
}

type straightRoutes struct{}

func (straightRoutes) CalculateRoute(_ context.Context, _, _ ride.Location, _ []ride.Location) (*ride.Route, error) {
	return &ride.Route{DistanceMeters: 9000, DurationSeconds: 900}, nil
}

// setupRideStack wires up the booking service against a fake operator.
func setupRideStack(t *testing.T, db *gorm.DB, brokers []string, op *fakeOperator) *rideStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	upstream := httptest.NewServer(op)
	t.Cleanup(upstream.Close)

	producer := kafka.NewProducer(brokers, logger)
	registry, err := application.NewRegistry(application.RegistryConfig{
		OperatorBaseURL: upstream.URL + "/api",
		OperatorTimeout: 5 * time.Second,
		SafeRoutes:      []string{application.RouteHome},
		ExpiryCooldown:  time.Minute,
		RequoteDebounce: time.Hour,
	}, application.RegistryDeps{
		Drafts:        repository.NewGormDraftRepository(db),
		Credentials:   repository.NewGormCredentialRepository(db),
		Routes:        straightRoutes{},
		Producer:      producer,
		BaseTransport: upstream.Client().Transport,
	}, logger)
	require.NoError(t, err)

	groupID := fmt.Sprintf("test-ride-%s", uuid.New().String()[:8])
	consumer := rideEvents.NewRideStatusConsumer(brokers, groupID, registry, logger)

	return &rideStack{
		Registry: registry,
		Consumer: consumer,
		Operator: op,
		CleanupProducer: func() {
			registry.Close()
			_ = producer.Close()
		},
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	time.Sleep(1 * time.Second)
}
