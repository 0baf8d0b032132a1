package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("run not found")

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListOptions 列表过滤条件
type ListOptions struct {
	Limit  int
	Offset int
	// 城市名，大小写不敏感
	City string
	// 状态，空表示全部
	Status string
}

// Normalized 填充默认值并限制上限
func (o ListOptions) Normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	o.City = strings.TrimSpace(o.City)
	return o
}

// QueryObserver 接收每次查询的操作名与耗时
type QueryObserver func(operation string, d time.Duration)

// Repository 规划记录的读写
type Repository struct {
	db       *gorm.DB
	logger   *zap.Logger
	now      func() time.Time
	observer QueryObserver
}

func NewRepository(db *gorm.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
		now:    time.Now,
	}
}

// WithQueryObserver 设置查询耗时回调，用于数据库指标
func (r *Repository) WithQueryObserver(fn QueryObserver) *Repository {
	r.observer = fn
	return r
}

func (r *Repository) observe(op string, start time.Time) {
	if r.observer != nil {
		r.observer(op, time.Since(start))
	}
}

// Save 插入记录；ID 为空时生成 UUID，CreatedAt 为零时取当前时间
func (r *Repository) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	defer r.observe("insert", time.Now())
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	r.logger.Debug("run saved",
		zap.String("run_id", run.ID),
		zap.String("city", run.City),
		zap.String("status", run.Status),
	)
	return nil
}

// Get 按 ID 读取
func (r *Repository) Get(ctx context.Context, id string) (*Run, error) {
	defer r.observe("get", time.Now())
	var run Run
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// List 按创建时间倒序返回记录与过滤后的总数
func (r *Repository) List(ctx context.Context, opts ListOptions) ([]Run, int64, error) {
	opts = opts.Normalized()
	defer r.observe("list", time.Now())

	q := r.db.WithContext(ctx).Model(&Run{})
	if opts.City != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(opts.City))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	var runs []Run
	err := q.Order("created_at DESC").Order("id").
		Limit(opts.Limit).Offset(opts.Offset).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	return runs, total, nil
}

// Delete 删除记录
func (r *Repository) Delete(ctx context.Context, id string) error {
	defer r.observe("delete", time.Now())
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Run{})
	if res.Error != nil {
		return fmt.Errorf("delete run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune 删除早于 before 的记录，返回删除条数
func (r *Repository) Prune(ctx context.Context, before time.Time) (int64, error) {
	defer r.observe("prune", time.Now())
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&Run{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune runs: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		r.logger.Info("pruned old runs", zap.Int64("deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
