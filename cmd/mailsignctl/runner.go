package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	jwtpkg "mailsign/backend/internal/auth/jwt"
	"mailsign/backend/internal/config"
	"mailsign/backend/internal/domain"
	"mailsign/backend/internal/storage"
	"mailsign/backend/internal/storage/factory"
)

// ErrNoDatabase 未配置数据库时拒绝执行需要持久化存储的命令
var ErrNoDatabase = errors.New("database is not configured (set MAILSIGN_DATABASE_TYPE and MAILSIGN_DATABASE_DSN)")

// Runner 持有命令依赖，每个命令对应一个方法
type Runner struct {
	config    *config.Config
	logger    *zap.Logger
	output    io.Writer
	openStore func() (storage.Store, error)
}

// RunnerOpts 创建 Runner 的选项
type RunnerOpts struct {
	Config    *config.Config
	Logger    *zap.Logger
	Output    io.Writer
	OpenStore func() (storage.Store, error) // 为空时按配置打开存储
}

// NewRunner 创建 Runner
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		openStore: opts.OpenStore,
	}
	if r.openStore == nil {
		r.openStore = r.openConfiguredStore
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		migrateCommand, tokenCommand, overrideCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// openConfiguredStore 命令行只操作持久化存储，内存存储对它没有意义
func (r *Runner) openConfiguredStore() (storage.Store, error) {
	if r.config.Database.Type == "" || r.config.Database.DSN == "" {
		return nil, ErrNoDatabase
	}
	return factory.Open(r.config, r.logger)
}

// Migrate 打开数据库即执行迁移（建表并写入缺失的全局署名）
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Type == "" || r.config.Database.DSN == "" {
		return ErrNoDatabase
	}

	db, err := factory.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer db.Close()

	r.logger.Info("database migrated", zap.String("type", r.config.Database.Type))
	return r.writePlain("✓ %s 数据库迁移完成\n", r.config.Database.Type)
}

// Token 签发后台访问令牌
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	subject := cmd.String("subject")
	if subject == "" {
		return fmt.Errorf("subject is required")
	}

	manager := jwtpkg.NewManager(r.config.JWT.Secret, r.config.JWT.Issuer, r.config.JWT.AccessExpiry)
	token, err := manager.GenerateToken(subject, cmd.String("role"))
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	return r.writeJSON(token, true)
}

// OverrideShow 输出指定邮件表单的署名覆盖
func (r *Runner) OverrideShow(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	contentID := cmd.Int64("content-id")
	override, err := store.GetSignatureOverrideByContentID(contentID)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureOverrideNotFound) {
			return fmt.Errorf("mail content %d has no signature override", contentID)
		}
		return err
	}
	return r.writeJSON(override, cmd.Bool("pretty"))
}

// OverrideList 输出全部署名覆盖
func (r *Runner) OverrideList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	overrides, err := store.ListSignatureOverrides()
	if err != nil {
		return err
	}
	return r.writeJSON(overrides, cmd.Bool("pretty"))
}

// OverrideCheck 检查主从一一对应关系。
//
// 从实体写入失败只记日志，因此可能出现缺失或孤立的署名覆盖；
// 这里只报告，不做修复。
func (r *Runner) OverrideCheck(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	contents, err := store.ListMailContents(domain.FindOptions{})
	if err != nil {
		return err
	}
	overrides, err := store.ListSignatureOverrides()
	if err != nil {
		return err
	}

	known := make(map[int64]bool, len(contents))
	for _, c := range contents {
		known[c.ID] = true
	}
	attached := make(map[int64]bool, len(overrides))

	problems := 0
	for _, o := range overrides {
		attached[o.MailContentID] = true
		if !known[o.MailContentID] {
			problems++
			r.writePlain("orphan override %d (mail content %d does not exist)\n", o.ID, o.MailContentID)
		}
	}
	for _, c := range contents {
		if !attached[c.ID] {
			problems++
			r.writePlain("mail content %d (%s) has no override\n", c.ID, c.Name)
		}
	}

	if problems == 0 {
		return r.writePlain("✓ %d mail contents, %d overrides, all paired\n", len(contents), len(overrides))
	}
	return fmt.Errorf("found %d unpaired records", problems)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
