package shopauth

import (
	"errors"

	"github.com/MrEthical07/shopauth/internal/tasks"
	"github.com/MrEthical07/shopauth/jwt"
	"github.com/MrEthical07/shopauth/logging"
	"github.com/MrEthical07/shopauth/mail"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/token"
	"github.com/MrEthical07/shopauth/verification"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Store and a Redis client are mandatory;
// everything else has a default.
type Builder struct {
	config Config
	store  Store
	redis  redis.UniversalClient
	mailer mail.Mailer
	logger logging.Logger
	hasher password.Hasher

	metricsEnabled bool

	built bool
}

func New() *Builder {
	return &Builder{
		config:         DefaultConfig(),
		metricsEnabled: true,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the SQL-backed persistence layer.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithRedis sets the client backing the verification ledger.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithLogger(log logging.Logger) *Builder {
	b.logger = log
	return b
}

// WithHasher overrides the argon2id default. Intended for tests that need a
// cheap hasher.
func (b *Builder) WithHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.metricsEnabled = enabled
	return b
}

// Build validates the configuration, wires every component, and starts the
// background dispatcher. A Builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("store required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	logger := b.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NewLogMailer(logger)
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := password.NewArgon2(password.Params{
			MemoryKB:    cfg.Password.MemoryKB,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	codec, err := token.NewCodec([]byte(cfg.Tokens.DigestSecret))
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		Secret:    []byte(cfg.JWT.Secret),
		AccessTTL: cfg.JWT.AccessTTL,
		Issuer:    cfg.JWT.Issuer,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		store:   b.store,
		ledger:  verification.NewLedger(b.redis, cfg.Verification.RedisPrefix),
		hasher:  hasher,
		codec:   codec,
		jwt:     jm,
		mailer:  mailer,
		tasks:   tasks.NewDispatcher(cfg.Tasks.BufferSize),
		log:     logger,
		metrics: NewMetrics(b.metricsEnabled),
	}

	b.built = true

	return engine, nil
}
