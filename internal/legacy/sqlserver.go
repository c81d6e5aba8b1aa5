package legacy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLServerGateway реализует AccountGateway поверх внешней базы аккаунтов
// на SQL Server (хранимые процедуры ROHAN4_Login / ROHAN3_SendCode)
type SQLServerGateway struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSQLServerGateway подключается к базе аккаунтов по DSN
func NewSQLServerGateway(dsn string, log *zap.Logger) (*SQLServerGateway, error) {
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy account database: %w", err)
	}

	log.Info("connected to legacy account database")
	return &SQLServerGateway{db: db, log: log}, nil
}

const loginQuery = `
DECLARE @p_id VARCHAR(50) = ?
DECLARE @p_pw VARCHAR(50) = ?
DECLARE @p_nation VARCHAR(10) = ?
DECLARE @p_ver VARCHAR(30) = ?
DECLARE @p_test TINYINT = ?
DECLARE @p_ip VARCHAR(20) = ?
DECLARE @p_code INT = ?

DECLARE @user_id INT = -1
DECLARE @sess_id CHAR(36) = SPACE(36)
DECLARE @run_ver VARCHAR(30) = SPACE(30)
DECLARE @bill_no INT = 0
DECLARE @grade TINYINT = 0
DECLARE @ret INT = 0

EXEC [dbo].[ROHAN4_Login]
    @p_id, @p_pw, @p_nation, @p_ver, @p_test, @p_ip, @p_code,
    @user_id OUTPUT,
    @sess_id OUTPUT,
    @run_ver OUTPUT,
    @bill_no OUTPUT,
    @grade OUTPUT,
    @ret OUTPUT

SELECT @user_id as user_id, @sess_id as sess_id, @run_ver as run_ver,
       @bill_no as bill_no, @grade as grade, @ret as ret`

// Login вызывает хранимую процедуру логина
func (g *SQLServerGateway) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	var row struct {
		UserID int    `gorm:"column:user_id"`
		SessID string `gorm:"column:sess_id"`
		RunVer string `gorm:"column:run_ver"`
		BillNo int    `gorm:"column:bill_no"`
		Grade  int    `gorm:"column:grade"`
		Ret    int    `gorm:"column:ret"`
	}

	err := g.db.WithContext(ctx).
		Raw(loginQuery, params.ID, params.PasswordHash, params.Nation, params.Version,
			params.Test, params.IP, params.Code).
		Scan(&row).Error
	if err != nil {
		g.log.Error("login procedure failed", zap.Error(err))
		return nil, fmt.Errorf("login procedure failed: %w", err)
	}

	return &LoginResult{
		UserID:    row.UserID,
		SessionID: strings.TrimSpace(row.SessID),
		RunVer:    strings.TrimSpace(row.RunVer),
		BillNo:    row.BillNo,
		Grade:     row.Grade,
		Ret:       row.Ret,
	}, nil
}

// RegisterLobby добавляет пользователя в таблицу лобби после входа
func (g *SQLServerGateway) RegisterLobby(ctx context.Context, userID int) error {
	err := g.db.WithContext(ctx).
		Exec("INSERT INTO [RohanUser].[dbo].[TLobby] (user_id, server_id, char_id) VALUES (?, 0, 0)", userID).Error
	if err != nil {
		return fmt.Errorf("lobby insert failed: %w", err)
	}
	return nil
}

// RemoveLobby удаляет пользователя из таблицы лобби
func (g *SQLServerGateway) RemoveLobby(ctx context.Context, userID int) error {
	err := g.db.WithContext(ctx).
		Exec("DELETE FROM [RohanUser].[dbo].[TLobby] WHERE user_id = ?", userID).Error
	if err != nil {
		return fmt.Errorf("lobby delete failed: %w", err)
	}
	return nil
}

const sendCodeQuery = `
DECLARE @p_id VARCHAR(50) = ?
DECLARE @p_pw VARCHAR(50) = ?
DECLARE @p_ip VARCHAR(20) = ?

DECLARE @ret INT = 0

EXEC [dbo].[ROHAN3_SendCode]
    @p_id, @p_pw, @p_ip,
    @ret OUTPUT

SELECT @ret as ret`

// SendCode вызывает хранимую процедуру отправки кода подтверждения
func (g *SQLServerGateway) SendCode(ctx context.Context, id string, passwordHash string, ip string) (int, error) {
	var row struct {
		Ret int `gorm:"column:ret"`
	}

	err := g.db.WithContext(ctx).
		Raw(sendCodeQuery, id, passwordHash, ip).
		Scan(&row).Error
	if err != nil {
		g.log.Error("send code procedure failed", zap.Error(err))
		return 0, fmt.Errorf("send code procedure failed: %w", err)
	}

	return row.Ret, nil
}
