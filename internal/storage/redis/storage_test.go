package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestLoadAbsentReturnsEmpty() {
	token, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(token)
}

func (s *StorageSuite) TestSaveAndLoad() {
	err := s.storage.Save(s.ctx, "tok-123")
	s.Require().NoError(err)

	token, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("tok-123", token)
}

func (s *StorageSuite) TestSaveReplacesPrevious() {
	s.Require().NoError(s.storage.Save(s.ctx, "old"))
	s.Require().NoError(s.storage.Save(s.ctx, "new"))

	token, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal("new", token)
}

func (s *StorageSuite) TestClearRemovesToken() {
	s.Require().NoError(s.storage.Save(s.ctx, "tok-123"))
	s.Require().NoError(s.storage.Clear(s.ctx))

	token, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(token)
}

func (s *StorageSuite) TestClearAbsentIsNoop() {
	s.Require().NoError(s.storage.Clear(s.ctx))
}

func (s *StorageSuite) TestTokenTTLExpires() {
	cfg := DefaultConfig()
	cfg.TokenTTL = time.Minute
	s.storage.cfg = cfg

	s.Require().NoError(s.storage.Save(s.ctx, "tok-123"))
	s.mini.FastForward(2 * time.Minute)

	token, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(token)
}
