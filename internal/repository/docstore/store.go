// Package docstore implements repository.Store on Cloud Firestore.
// Money is stored as float64 in documents and converted to decimal at the edge.
package docstore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// Store reads and writes through tx when it is bound to a transaction.
// Firestore requires every transactional read to happen before the first write.
type Store struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func New(client *firestore.Client) *Store { return &Store{client: client} }

var _ repository.Store = (*Store)(nil)

func (s *Store) Products() repository.ProductRepository        { return productRepo{s} }
func (s *Store) Inventories() repository.InventoryRepository   { return inventoryRepo{s} }
func (s *Store) Movements() repository.StockMovementRepository { return movementRepo{s} }
func (s *Store) Sales() repository.SaleRepository              { return saleRepo{s} }
func (s *Store) Goals() repository.GoalRepository              { return goalRepo{s} }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &Store{client: s.client, tx: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(repository.CollectionProducts).Limit(1).Documents(ctx).GetAll()
	return err
}

func (s *Store) col(name string) *firestore.CollectionRef { return s.client.Collection(name) }

func (s *Store) get(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if s.tx != nil {
		return s.tx.Get(ref)
	}
	return ref.Get(ctx)
}

func (s *Store) query(ctx context.Context, q firestore.Query) ([]*firestore.DocumentSnapshot, error) {
	if s.tx != nil {
		return s.tx.Documents(q).GetAll()
	}
	return q.Documents(ctx).GetAll()
}

func (s *Store) create(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if s.tx != nil {
		return s.tx.Create(ref, data)
	}
	_, err := ref.Create(ctx, data)
	return err
}

func (s *Store) set(ctx context.Context, ref *firestore.DocumentRef, data any) error {
	if s.tx != nil {
		return s.tx.Set(ref, data)
	}
	_, err := ref.Set(ctx, data)
	return err
}

func (s *Store) update(ctx context.Context, ref *firestore.DocumentRef, updates []firestore.Update) error {
	if s.tx != nil {
		return s.tx.Update(ref, updates)
	}
	_, err := ref.Update(ctx, updates)
	return err
}

func (s *Store) delete(ctx context.Context, ref *firestore.DocumentRef) error {
	if s.tx != nil {
		return s.tx.Delete(ref)
	}
	_, err := ref.Delete(ctx)
	return err
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// mapNotFound converts a Firestore NOT_FOUND into the domain sentinel.
func mapNotFound(err, notFound error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return notFound
	}
	return err
}
