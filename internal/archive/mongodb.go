package archive

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultMongoDatabase = "rankmonkey"

// MongoArchive stores each stream in its own collection.
type MongoArchive struct {
	client  *mongo.Client
	samples *mongo.Collection
	audits  *mongo.Collection
	alerts  *mongo.Collection
}

type sampleDocument struct {
	Domain           string    `bson:"domain"`
	Keyword          string    `bson:"keyword"`
	Position         int       `bson:"position"`
	URL              string    `bson:"url"`
	SearchVolume     int       `bson:"search_volume"`
	EstimatedTraffic float64   `bson:"estimated_traffic"`
	RecordedAt       time.Time `bson:"recorded_at"`
}

type alertDocument struct {
	ID           string              `bson:"_id"`
	Domain       string              `bson:"domain"`
	Type         string              `bson:"type"`
	Severity     string              `bson:"severity"`
	Title        string              `bson:"title"`
	Description  string              `bson:"description"`
	Trigger      models.AlertTrigger `bson:"trigger"`
	Acknowledged bool                `bson:"acknowledged"`
	Resolved     bool                `bson:"resolved"`
	CreatedAt    time.Time           `bson:"created_at"`
}

func NewMongoArchive(ctx context.Context, dsn string) (*MongoArchive, error) {
	cs, err := connstring.ParseAndValidate(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mongodb uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	archive := &MongoArchive{
		client:  client,
		samples: db.Collection("ranking_samples"),
		audits:  db.Collection("audit_results"),
		alerts:  db.Collection("alerts"),
	}

	_, err = archive.samples.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "domain", Value: 1}, {Key: "keyword", Value: 1}, {Key: "recorded_at", Value: 1}},
	})
	if err != nil {
		log.Printf("Warning: failed to create ranking_samples index: %v", err)
	}

	log.Printf("Archive connected to MongoDB database %s", dbName)
	return archive, nil
}

func (m *MongoArchive) AppendSamples(ctx context.Context, domain string, samples []models.RankingSample) error {
	if len(samples) == 0 {
		return nil
	}

	docs := make([]interface{}, len(samples))
	for i, s := range samples {
		docs[i] = sampleDocument{
			Domain:           domain,
			Keyword:          s.Keyword,
			Position:         s.Position,
			URL:              s.URL,
			SearchVolume:     s.SearchVolume,
			EstimatedTraffic: s.EstimatedTraffic,
			RecordedAt:       s.Timestamp,
		}
	}

	if _, err := m.samples.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to archive samples: %w", err)
	}
	return nil
}

func (m *MongoArchive) AppendAudit(ctx context.Context, result *models.AuditResult) error {
	doc := bson.M{
		"_id":             result.ID,
		"domain":          result.Domain,
		"score":           result.Score,
		"categories":      result.Categories,
		"critical_issues": len(result.CriticalIssues),
		"warnings":        len(result.Warnings),
		"recommendations": len(result.Recommendations),
		"audited_at":      result.Timestamp,
	}

	if _, err := m.audits.InsertOne(ctx, doc); err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to archive audit: %w", err)
	}
	return nil
}

func (m *MongoArchive) SaveAlert(ctx context.Context, domain string, alert models.Alert) error {
	doc := alertDocument{
		ID:           alert.ID,
		Domain:       domain,
		Type:         string(alert.Type),
		Severity:     string(alert.Severity),
		Title:        alert.Title,
		Description:  alert.Description,
		Trigger:      alert.Trigger,
		Acknowledged: alert.Acknowledged,
		Resolved:     alert.Resolved,
		CreatedAt:    alert.Timestamp,
	}

	_, err := m.alerts.ReplaceOne(ctx, bson.M{"_id": alert.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive alert: %w", err)
	}
	return nil
}

func (m *MongoArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
