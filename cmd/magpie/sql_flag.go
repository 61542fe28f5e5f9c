package main

import (
	"crypto/x509"
	"errors"
	"os"
	"time"

	"github.com/mishaschwartz/Magpie/pkg/logx"
	"github.com/mishaschwartz/Magpie/pkg/sqlx"
)

type SQLFlag struct {
	Host     string `long:"host" description:"Host for SQL backend" required:"true"`
	Port     int    `long:"port" description:"Port for SQL backend" required:"true"`
	Schema   string `long:"schema" description:"Database name to use for connecting to SQL backend" required:"true"`
	Username string `long:"username" description:"Username to use for connecting to SQL backend" required:"true"`
	Password string `long:"password" description:"Password to use for connecting to SQL backend" required:"true"`

	RootCA string `long:"root-ca" description:"CA certificate file for TLS connections to the SQL backend"`

	ConnMaxLifetime int `long:"connection-max-lifetime" description:"Limit the lifetime in milliseconds of a SQL connection"`
}

func (f SQLFlag) Connect(logger logx.Logger) (*sqlx.DB, error) {
	logger = logger.WithData(logx.Data{
		Key:   "db_host",
		Value: f.Host,
	}, logx.Data{
		Key:   "db_port",
		Value: f.Port,
	}, logx.Data{
		Key:   "db_schema",
		Value: f.Schema,
	})

	dbOpts := []sqlx.DBOption{
		sqlx.DBUsername(f.Username),
		sqlx.DBPassword(f.Password),
		sqlx.DBDatabaseName(f.Schema),
		sqlx.DBHost(f.Host),
		sqlx.DBPort(f.Port),
		sqlx.DBConnectionMaxLifetime(time.Duration(f.ConnMaxLifetime) * time.Millisecond),
	}

	if f.RootCA != "" {
		pem, err := os.ReadFile(f.RootCA)
		if err != nil {
			logger.Error(failedToReadCertificate, err)
			return nil, err
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			err = errors.New("no certificates parsed from root CA file")
			logger.Error(failedToAppendCertToPool, err)
			return nil, err
		}

		dbOpts = append(dbOpts, sqlx.DBRootCAPool(pool))
	}

	conn, err := sqlx.Connect(sqlx.DBDriverMySQL, dbOpts...)
	if err != nil {
		logger.Error(failedToOpenSQLConnection, err)
		return nil, err
	}

	return conn, nil
}
