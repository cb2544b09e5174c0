package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. It persists hourly price series per tariff and archived invoices.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) priceCollection(tariffCode string) (*firestore.CollectionRef, error) {
	if tariffCode == "" {
		return nil, fmt.Errorf("tariffCode cannot be empty")
	}
	return f.client.Collection("tariffs").Doc(tariffCode).Collection("prices"), nil
}

// UpsertPriceHours adds or updates hourly price records for a tariff.
// Document IDs are the UTC hour start in RFC3339 so range queries can use
// the document ID index.
func (f *FirestoreProvider) UpsertPriceHours(ctx context.Context, tariffCode string, hours []types.PVPCHour, version int) error {
	coll, err := f.priceCollection(tariffCode)
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	for _, h := range hours {
		jsonBytes, err := json.Marshal(h)
		if err != nil {
			return fmt.Errorf("failed to marshal price hour: %w", err)
		}
		docID := h.TSStart.UTC().Format(time.RFC3339)
		_, err = bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": h.TSStart,
			"version":   version,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert price hour %s: %w", docID, err)
		}
	}
	bw.End()
	return nil
}

// GetPriceHours retrieves price records within the specified time range for a
// tariff. Uses document ID range queries for efficient filtering.
func (f *FirestoreProvider) GetPriceHours(ctx context.Context, tariffCode string, start, end time.Time) ([]types.PVPCHour, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	coll, err := f.priceCollection(tariffCode)
	if err != nil {
		return nil, err
	}

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var hours []types.PVPCHour
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating price hours: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "price doc missing json", slog.String("docID", doc.Ref.ID), slog.String("tariffCode", tariffCode), slog.Any("err", err))
			return nil, fmt.Errorf("price document %s missing 'json' field: %w", doc.Ref.ID, err)
		}

		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "price doc json not string", slog.String("docID", doc.Ref.ID), slog.String("tariffCode", tariffCode))
			return nil, fmt.Errorf("price document %s 'json' field is not string", doc.Ref.ID)
		}

		var h types.PVPCHour
		if err := json.Unmarshal([]byte(jsonStr), &h); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal price hour", slog.String("docID", doc.Ref.ID), slog.String("tariffCode", tariffCode), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal price hour (id=%s): %w", doc.Ref.ID, err)
		}
		hours = append(hours, h)
	}
	return hours, nil
}

// GetLatestPriceTime retrieves the timestamp of the last stored price hour
// for a tariff.
func (f *FirestoreProvider) GetLatestPriceTime(ctx context.Context, tariffCode string) (time.Time, int, error) {
	coll, err := f.priceCollection(tariffCode)
	if err != nil {
		return time.Time{}, 0, err
	}

	// firestore automatically creates indexes for top-level fields
	iter := coll.
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, 0, nil
	}
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("failed to get latest price doc: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, doc.Ref.ID)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid price doc id %s: %w", doc.Ref.ID, err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	return ts, version, nil
}

// InsertInvoice stores a computed invoice summary keyed by its ID.
func (f *FirestoreProvider) InsertInvoice(ctx context.Context, inv types.InvoiceSummary) error {
	if inv.ID == "" {
		return fmt.Errorf("invoice ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice: %w", err)
	}
	_, err = f.client.Collection("invoices").Doc(inv.ID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"cups":      inv.CUPS,
		"createdAt": inv.CreatedAt,
		"version":   types.CurrentInvoiceVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", inv.ID, err)
	}
	return nil
}

// GetInvoice retrieves a stored invoice by ID. Returns ErrNotFound when the
// invoice does not exist.
func (f *FirestoreProvider) GetInvoice(ctx context.Context, id string) (types.InvoiceSummary, error) {
	doc, err := f.client.Collection("invoices").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.InvoiceSummary{}, ErrNotFound
		}
		return types.InvoiceSummary{}, fmt.Errorf("failed to fetch invoice %s: %w", id, err)
	}
	return invoiceFromDoc(ctx, doc)
}

// GetInvoiceHistory retrieves stored invoices for a CUPS created within the
// specified time range.
func (f *FirestoreProvider) GetInvoiceHistory(ctx context.Context, cups string, start, end time.Time) ([]types.InvoiceSummary, error) {
	iter := f.client.Collection("invoices").
		Where("cups", "==", cups).
		Where("createdAt", ">=", start).
		Where("createdAt", "<", end).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var invoices []types.InvoiceSummary
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating invoices: %w", err)
		}
		inv, err := invoiceFromDoc(ctx, doc)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func invoiceFromDoc(ctx context.Context, doc *firestore.DocumentSnapshot) (types.InvoiceSummary, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "invoice doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.InvoiceSummary{}, fmt.Errorf("invoice document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "invoice doc json not string", slog.String("docID", doc.Ref.ID))
		return types.InvoiceSummary{}, fmt.Errorf("invoice document %s 'json' field is not string", doc.Ref.ID)
	}
	var inv types.InvoiceSummary
	if err := json.Unmarshal([]byte(jsonStr), &inv); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal invoice", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.InvoiceSummary{}, fmt.Errorf("failed to unmarshal invoice (id=%s): %w", doc.Ref.ID, err)
	}
	return inv, nil
}
