// Package database 负责 PostgreSQL 连接池的初始化与生命周期管理。
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	loader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/config_loader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPgxPool 创建并配置 pgxpool.Pool，返回 Wire cleanup。
// 启动时做一次健康检查，失败直接报错而不是带病运行。
func NewPgxPool(ctx context.Context, data loader.Data, logger log.Logger) (*pgxpool.Pool, func(), error) {
	helper := log.NewHelper(logger)
	pgCfg := data.Postgres

	if pgCfg.DSN == "" {
		return nil, nil, fmt.Errorf("postgres DSN is required (set DATABASE_URL)")
	}
	poolConfig, err := pgxpool.ParseConfig(pgCfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres DSN: %w", err)
	}

	if pgCfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = pgCfg.MaxOpenConns
	}
	if pgCfg.MinOpenConns >= 0 {
		poolConfig.MinConns = pgCfg.MinOpenConns
	}
	if pgCfg.MaxConnLifetimeSeconds > 0 {
		poolConfig.MaxConnLifetime = time.Duration(pgCfg.MaxConnLifetimeSeconds) * time.Second
	}
	if pgCfg.MaxConnIdleTimeSeconds > 0 {
		poolConfig.MaxConnIdleTime = time.Duration(pgCfg.MaxConnIdleTimeSeconds) * time.Second
	}
	if pgCfg.HealthCheckPeriodSeconds > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(pgCfg.HealthCheckPeriodSeconds) * time.Second
	}

	poolConfig.ConnConfig.Tracer = &pgxLogger{helper: helper}

	if schema := pgCfg.Schema; schema != "" {
		poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", schema)); err != nil {
				return fmt.Errorf("set search_path: %w", err)
			}
			return nil
		}
	}

	// 连接池代理（如 pgbouncer transaction 模式）下必须禁用 prepared statements。
	if !pgCfg.EnablePreparedStatements {
		poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := healthCheck(ctx, pool, helper); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres health check failed: %w", err)
	}

	helper.Infof("postgres pool created: dsn=%s max_conns=%d min_conns=%d schema=%s",
		sanitizeDSN(pgCfg.DSN), poolConfig.MaxConns, poolConfig.MinConns, pgCfg.Schema)

	cleanup := func() {
		helper.Info("closing postgres pool")
		pool.Close()
	}
	return pool, cleanup, nil
}

func healthCheck(ctx context.Context, pool *pgxpool.Pool, helper *log.Helper) error {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	var version string
	if err := pool.QueryRow(healthCtx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("version query failed: %w", err)
	}
	helper.Infof("database health check passed: version=%s", truncateVersion(version))
	return nil
}

// sanitizeDSN 隐藏 DSN 中的密码后用于日志。
func sanitizeDSN(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	if parsed.User != nil {
		username := parsed.User.Username()
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(username, "***")
		}
	}
	return parsed.String()
}

func truncateVersion(version string) string {
	if idx := strings.Index(version, "("); idx != -1 {
		return strings.TrimSpace(version[:idx])
	}
	if len(version) > 100 {
		return version[:100] + "..."
	}
	return version
}

// pgxLogger 把 pgx 查询失败转发到 Kratos 日志。不记录 SQL 文本。
type pgxLogger struct {
	helper *log.Helper
}

func (l *pgxLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return ctx
}

func (l *pgxLogger) TraceQueryEnd(_ context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if data.Err != nil {
		l.helper.Errorf("postgres query failed: error=%v command_tag=%s", data.Err, data.CommandTag.String())
	}
}
