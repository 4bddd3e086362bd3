package database

type Migration struct {
	Name     string
	Commands []string
}

// Dialect описывает различия SQL между драйверами
type Dialect struct {
	Driver          string
	MigrationsTable string
	Migrations      []Migration
}

var sqliteDialect = Dialect{
	Driver: "sqlite3",
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	Migrations: []Migration{
		{
			Name: "01_create_users",
			Commands: []string{
				`CREATE TABLE IF NOT EXISTS users (
					user_id INTEGER PRIMARY KEY,
					api_key TEXT NOT NULL
				)`,
			},
		},
		{
			Name: "02_create_compressed_files",
			Commands: []string{
				`CREATE TABLE IF NOT EXISTS compressed_files (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					original_name TEXT NOT NULL,
					output_path TEXT NOT NULL,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_compressed_files_user_id ON compressed_files(user_id)`,
			},
		},
	},
}

var mysqlDialect = Dialect{
	Driver: "mysql",
	MigrationsTable: `
		CREATE TABLE IF NOT EXISTS migrations (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	Migrations: []Migration{
		{
			Name: "01_create_users",
			Commands: []string{
				`CREATE TABLE IF NOT EXISTS users (
					user_id BIGINT PRIMARY KEY,
					api_key VARCHAR(512) NOT NULL
				) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			},
		},
		{
			Name: "02_create_compressed_files",
			Commands: []string{
				`CREATE TABLE IF NOT EXISTS compressed_files (
					id BIGINT AUTO_INCREMENT PRIMARY KEY,
					user_id BIGINT NOT NULL,
					original_name VARCHAR(512) NOT NULL,
					output_path VARCHAR(1024) NOT NULL,
					created_at VARCHAR(19) NOT NULL,
					INDEX idx_compressed_files_user_id (user_id)
				) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			},
		},
	},
}

// DialectFor возвращает диалект по имени драйвера
func DialectFor(driver string) (Dialect, bool) {
	switch driver {
	case sqliteDialect.Driver:
		return sqliteDialect, true
	case mysqlDialect.Driver:
		return mysqlDialect, true
	}
	return Dialect{}, false
}
