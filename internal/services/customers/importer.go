// Package customers maps Shopify customers onto local customer, address and
// contact records.
package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storesync/internal/lock"
	"storesync/internal/logger"
	"storesync/internal/metrics"
	"storesync/internal/models"
	"storesync/internal/services/shopify"
)

var ErrSyncInProgress = errors.New("customer sync already in progress for this shop")

const maxErrorLength = 140

type Options struct {
	// CommitEvery is how many records share one transaction.
	CommitEvery int
	// LockTTL bounds how long a crashed run keeps others out.
	LockTTL time.Duration
}

type Importer struct {
	db          *gorm.DB
	logger      *logger.Logger
	sessions    *shopify.Sessions
	locker      lock.Locker
	commitEvery int
	lockTTL     time.Duration
}

func NewImporter(db *gorm.DB, logger *logger.Logger, sessions *shopify.Sessions, locker lock.Locker, opts Options) *Importer {
	if opts.CommitEvery <= 0 {
		opts.CommitEvery = 50
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 100 * time.Minute
	}
	return &Importer{
		db:          db,
		logger:      logger,
		sessions:    sessions,
		locker:      locker,
		commitEvery: opts.CommitEvery,
		lockTTL:     opts.LockTTL,
	}
}

// SyncAll fetches every customer of the shop and upserts them. A failed
// fetch aborts the run before anything is written; a failed record is
// counted and the run moves on.
func (imp *Importer) SyncAll(ctx context.Context, conn *models.Connector) (*Summary, error) {
	release, err := imp.locker.Acquire(ctx, "storesync:sync:"+conn.ShopDomain, imp.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrSyncInProgress
	}
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()

	var remote []shopify.Customer
	err = imp.sessions.With(ctx, conn, func(ctx context.Context, client *shopify.Client) error {
		var err error
		remote, err = client.ListCustomers(ctx)
		return err
	})
	if err != nil {
		imp.logger.Error("Shopify Fetch Customers Error for %s: %v", conn.ShopDomain, err)
		return nil, fmt.Errorf("error fetching customers from Shopify: %w", err)
	}

	summary := imp.Import(ctx, conn, remote)

	now := time.Now()
	if err := imp.db.WithContext(ctx).Model(conn).Update("last_sync", now).Error; err != nil {
		imp.logger.Error("Failed to record last sync for %s: %v", conn.ShopDomain, err)
	} else {
		conn.LastSync = &now
	}

	metrics.ObserveSyncDuration(time.Since(start).Seconds())
	imp.logger.Info("%s (%s)", summary, conn.ShopDomain)
	return summary, nil
}

// Import upserts customers, committing every CommitEvery records. Each
// record runs in its own savepoint so one bad record does not undo its batch.
func (imp *Importer) Import(ctx context.Context, conn *models.Connector, remote []shopify.Customer) *Summary {
	summary := &Summary{Total: len(remote)}
	tr := shopify.NewTransformer(conn)

	for start := 0; start < len(remote); start += imp.commitEvery {
		end := min(start+imp.commitEvery, len(remote))
		batch := remote[start:end]

		if err := ctx.Err(); err != nil {
			for i := range batch {
				summary.fail(&batch[i], err)
			}
			continue
		}

		var imported []*shopify.Customer
		// reached counts the records the transaction got to. It stays 0
		// when the transaction could not begin.
		reached := 0
		err := imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for i := range batch {
				reached = i + 1
				c := &batch[i]
				err := tx.Transaction(func(tx *gorm.DB) error {
					_, err := upsertCustomer(tx, imp.logger, tr, conn, c)
					return err
				})
				if err != nil {
					imp.logger.Error("Error importing Shopify customer %d: %v", c.ID, err)
					summary.fail(c, err)
					continue
				}
				imported = append(imported, c)
			}
			return nil
		})
		if err != nil {
			imp.logger.Error("Failed to commit customer batch %d-%d: %v", start, end, err)
			for _, c := range imported {
				summary.fail(c, err)
			}
			for i := reached; i < len(batch); i++ {
				summary.fail(&batch[i], err)
			}
			continue
		}
		summary.Imported += len(imported)
	}

	for range summary.Imported {
		metrics.IncCustomerSynced(true)
	}
	for range summary.Failed {
		metrics.IncCustomerSynced(false)
	}
	return summary
}

// UpsertPayload applies a single customers/create or customers/update body.
func (imp *Importer) UpsertPayload(ctx context.Context, conn *models.Connector, payload []byte) (*models.Customer, error) {
	var remote shopify.Customer
	if err := json.Unmarshal(payload, &remote); err != nil {
		return nil, fmt.Errorf("invalid customer payload: %w", err)
	}

	tr := shopify.NewTransformer(conn)
	var customer *models.Customer
	err := imp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = upsertCustomer(tx, imp.logger, tr, conn, &remote)
		return err
	})
	metrics.IncCustomerSynced(err == nil)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// DisablePayload marks the customer named by a customers/delete body as
// disabled. Unknown customers are not an error.
func (imp *Importer) DisablePayload(ctx context.Context, conn *models.Connector, payload []byte) (bool, error) {
	var remote struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &remote); err != nil {
		return false, fmt.Errorf("invalid customer payload: %w", err)
	}
	if remote.ID == 0 {
		return false, shopify.ErrMissingCustomerID
	}

	result := imp.db.WithContext(ctx).Model(&models.Customer{}).
		Where("shopify_customer_id = ?", shopify.FormatID(remote.ID)).
		Update("disabled", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to disable customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		imp.logger.Warn("Shopify customer %d is not known locally, nothing to disable", remote.ID)
		return false, nil
	}
	return true, nil
}

func upsertCustomer(tx *gorm.DB, log *logger.Logger, tr *shopify.Transformer, conn *models.Connector, c *shopify.Customer) (*models.Customer, error) {
	incoming, err := tr.TransformCustomer(c)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		incoming.ConnectorID = conn.ID
	}

	var customer models.Customer
	err = tx.Where("shopify_customer_id = ?", incoming.ShopifyCustomerID).First(&customer).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		customer = *incoming
		if err := tx.Create(&customer).Error; err != nil {
			return nil, fmt.Errorf("failed to create customer: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	default:
		customer.CustomerName = incoming.CustomerName
		customer.EmailID = incoming.EmailID
		customer.Phone = incoming.Phone
		customer.ConnectorID = incoming.ConnectorID
		if err := tx.Save(&customer).Error; err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
	}

	for i := range c.Addresses {
		if err := upsertAddress(tx, tr, &c.Addresses[i], &customer); err != nil {
			return nil, fmt.Errorf("error importing address: %w", err)
		}
	}

	contact, ok := tr.TransformContact(c, &customer)
	if !ok {
		log.Warn("Customer %s has no phone number or email. Skipping contact creation.", customer.ShopifyCustomerID)
		return &customer, nil
	}
	if err := upsertContact(tx, contact); err != nil {
		return nil, fmt.Errorf("error importing contact: %w", err)
	}

	return &customer, nil
}

func upsertAddress(tx *gorm.DB, tr *shopify.Transformer, a *shopify.Address, customer *models.Customer) error {
	incoming, err := tr.TransformAddress(a, customer)
	if err != nil {
		return err
	}

	var existing models.Address
	err = tx.Where("shopify_address_id = ?", incoming.ShopifyAddressID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(incoming).Error
	case err != nil:
		return err
	}

	// Existing address is relinked to this customer.
	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	return tx.Save(incoming).Error
}

func upsertContact(tx *gorm.DB, incoming *models.Contact) error {
	var existing models.Contact
	err := tx.Where("shopify_customer_id = ?", incoming.ShopifyCustomerID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(incoming).Error
	case err != nil:
		return err
	}

	incoming.ID = existing.ID
	incoming.CreatedAt = existing.CreatedAt
	return tx.Save(incoming).Error
}
