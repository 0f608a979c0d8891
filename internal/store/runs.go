package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/tokenfsm/decoding"
)

// ErrRunNotFound 记录不存在
var ErrRunNotFound = errors.New("run not found")

// Run 一次解码会话的持久化记录
type Run struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string    `gorm:"size:36;uniqueIndex" json:"id"`
	SessionID   string    `gorm:"size:36;index" json:"session_id"`
	Fingerprint string    `gorm:"size:64;index" json:"fingerprint"`
	Outcome     string    `gorm:"size:32;index" json:"outcome"`
	Prompt      []int     `gorm:"serializer:json;type:text" json:"prompt"`
	Tokens      []int     `gorm:"serializer:json;type:text" json:"tokens"`
	Text        string    `gorm:"type:text" json:"text,omitempty"`
	Steps       int       `json:"steps"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 固定表名
func (Run) TableName() string { return "decode_runs" }

// NewRun 从解码结果构造记录；text 仅在 Accepted 时保存
func NewRun(res *decoding.Result, fingerprint string, prompt []int, text string) *Run {
	r := &Run{
		ID:          uuid.NewString(),
		SessionID:   res.SessionID,
		Fingerprint: fingerprint,
		Outcome:     res.Outcome.String(),
		Prompt:      append([]int{}, prompt...),
		Tokens:      append([]int{}, res.Tokens...),
		Steps:       res.Steps,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if res.Accepted() {
		r.Text = text
	}
	return r
}

// Record 保存一条记录，缺省 ID 时自动生成
func (s *Store) Record(ctx context.Context, run *Run) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := db.Create(run).Error; err != nil {
		return storageErr("record run", err)
	}
	s.logger.Debug("run recorded",
		zap.String("id", run.ID),
		zap.String("outcome", run.Outcome),
		zap.Int("steps", run.Steps),
	)
	return nil
}

// Get 按 ID 读取记录
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var run Run
	if err := db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storageErr("get run "+id, ErrRunNotFound)
		}
		return nil, storageErr("get run", err)
	}
	return &run, nil
}

// Filter 列表查询条件，零值字段不参与过滤
type Filter struct {
	Fingerprint string
	Outcome     string
	Limit       int
}

// List 按写入顺序倒序返回记录
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Model(&Run{})
	if f.Fingerprint != "" {
		q = q.Where("fingerprint = ?", f.Fingerprint)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var runs []Run
	if err := q.Order("seq DESC").Find(&runs).Error; err != nil {
		return nil, storageErr("list runs", err)
	}
	return runs, nil
}

// CountByOutcome 统计各终止结果的次数；fingerprint 为空时统计全部
func (s *Store) CountByOutcome(ctx context.Context, fingerprint string) (map[string]int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	q := db.Model(&Run{}).Select("outcome, COUNT(*) AS total").Group("outcome")
	if fingerprint != "" {
		q = q.Where("fingerprint = ?", fingerprint)
	}
	var rows []struct {
		Outcome string
		Total   int64
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, storageErr("count runs", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Total
	}
	return counts, nil
}
