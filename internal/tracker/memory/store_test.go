package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StoreSuite struct {
	suite.Suite
	store *Store[int]
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New[int]()
	s.ctx = context.Background()
}

func (s *StoreSuite) TestGetMissing() {
	v, ok, err := s.store.Get(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.False(ok)
	s.Zero(v)
}

func (s *StoreSuite) TestPutAndGet() {
	s.Require().NoError(s.store.Put(s.ctx, "10.0.0.1", 3))

	v, ok, err := s.store.Get(s.ctx, "10.0.0.1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(3, v)
	s.Equal(1, s.store.Len())
}

func (s *StoreSuite) TestEvict() {
	_ = s.store.Put(s.ctx, "10.0.0.1", 3)

	s.Require().NoError(s.store.Evict(s.ctx, "10.0.0.1"))
	s.Require().NoError(s.store.Evict(s.ctx, "never-seen"))

	_, ok, _ := s.store.Get(s.ctx, "10.0.0.1")
	s.False(ok)
	s.Equal(0, s.store.Len())
}

func (s *StoreSuite) TestKeys() {
	_ = s.store.Put(s.ctx, "a", 1)
	_ = s.store.Put(s.ctx, "b", 2)

	keys, err := s.store.Keys(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"a", "b"}, keys)
}
