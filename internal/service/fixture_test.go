package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/credential"
	"marketplace/internal/domain"
	"marketplace/internal/event"
	"marketplace/internal/repository"
	"marketplace/internal/repository/memory"
)

var errBroken = errors.New("disk on fire")

type recordingPublisher struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	ctx      context.Context
	users    *memory.UserRepository
	products *memory.ProductRepository
	events   *recordingPublisher
	hook     *test.Hook
	logger   *logrus.Logger
	codec    credential.Codec
	userSvc  UserService
	catalog  ProductService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := credential.NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	f := &fixture{
		ctx:      context.Background(),
		users:    memory.NewUserRepository(),
		products: memory.NewProductRepository(),
		events:   &recordingPublisher{},
		hook:     hook,
		logger:   logger,
		codec:    codec,
	}
	f.userSvc = NewUserService(f.users, codec, f.events, logger)
	f.catalog = NewProductService(f.products, f.userSvc, f.events, logger)
	return f
}

func (f *fixture) register(t *testing.T, username string, role domain.Role) domain.User {
	t.Helper()
	u, err := f.userSvc.Register(f.ctx, username, "pw-"+username, username+"@example.com", string(role))
	require.NoError(t, err)
	return *u
}

func (f *fixture) product(t *testing.T, name, description string, seller domain.User) domain.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, ProductInput{
		Name:        name,
		Description: description,
		Price:       999,
		Quantity:    5,
	}, seller)
	require.NoError(t, err)
	return *p
}

// brokenUsers fails every call the tests reach.
type brokenUsers struct {
	repository.UserRepository
}

func (brokenUsers) FindByID(context.Context, int64) (*domain.User, error) { return nil, errBroken }
func (brokenUsers) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, errBroken
}
func (brokenUsers) ListAll(context.Context) ([]domain.User, error) { return nil, errBroken }

type brokenProducts struct {
	repository.ProductRepository
}

func (brokenProducts) FindByID(context.Context, int64) (*domain.Product, error) { return nil, errBroken }
func (brokenProducts) ListAll(context.Context) ([]domain.Product, error)       { return nil, errBroken }
func (brokenProducts) Insert(context.Context, *domain.Product) (*domain.Product, error) {
	return nil, errBroken
}
