// Package database 负责初始化关系库与 Redis 连接。
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"course-rag-go/internal/model"
	"course-rag-go/pkg/log"
)

var DB *gorm.DB

// InitPostgres 初始化 PostgreSQL 数据库连接（元数据表）。
// 向量表不走 GORM，由 vectorstore 自己的连接管理。
func InitPostgres(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 元数据表结构由 GORM 迁移维护
	if err := DB.AutoMigrate(&model.CourseFile{}); err != nil {
		log.Fatal("failed to migrate course_files", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间

	log.Info("PostgreSQL database connected successfully")
}
