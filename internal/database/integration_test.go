package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/quizroom/gachadb/data"
	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/database"
	"github.com/quizroom/gachadb/internal/models"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// fixedPicker always draws the same item id
type fixedPicker struct {
	itemID int64
}

func (p fixedPicker) Pick(rangeSize int64) int64 {
	return p.itemID
}

// executeSQL runs a multi-statement init script one statement at a time,
// skipping full-line comments. The mysql driver rejects multi-statement Exec.
func executeSQL(db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), stmt)
		}
	}
	return nil
}

// TestWithMariaDB exercises the locking claim path against a real MariaDB,
// where FOR UPDATE actually blocks. The schema comes from the shipped initdb
// scripts rather than auto-migration, so the hand-written DDL is verified
// against the models at the same time. Requires docker; set DB_IMAGE to run.
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	image := os.Getenv("DB_IMAGE")
	if image == "" {
		t.Skip("Set DB_IMAGE (e.g. mariadb:11) to run the MariaDB integration test")
	}

	ctx := context.Background()

	tcpPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		t.Fatalf("Failed to create port: %v", err)
	}

	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Name:         "gachadb-it-" + uuid.NewString()[:8],
			Image:        image,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
			},
			WaitingFor: wait.ForListeningPort(tcpPort).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := mariadbContainer.MappedPort(ctx, tcpPort)
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Wait until the server accepts root connections
	rootDSN := fmt.Sprintf("root:rootpass@tcp(%s:%s)/", host, port.Port())
	var root *sql.DB
	deadline := time.Now().Add(60 * time.Second)
	for {
		root, err = sql.Open("mysql", rootDSN)
		if err == nil {
			if err = root.Ping(); err == nil {
				break
			}
			root.Close()
		}
		if time.Now().After(deadline) {
			t.Fatalf("MariaDB never became ready: %v", err)
		}
		time.Sleep(2 * time.Second)
	}

	// Seed the schema and service accounts from the shipped initdb scripts
	if err := executeSQL(root, data.InitdbMariaDBTables); err != nil {
		root.Close()
		t.Fatalf("Failed to execute tables init sql: %v", err)
	}
	if err := executeSQL(root, data.InitdbMariaDBPrivileges); err != nil {
		root.Close()
		t.Fatalf("Failed to execute privileges init sql: %v", err)
	}
	root.Close()

	cfg := &config.Config{
		DBType:               "mysql",
		DBHost:               host,
		DBPort:               port.Port(),
		DBDatabase:           "gachadb",
		DBAppUser:            "gachadb_app",
		DBAppPassword:        "gachadb_app_password",
		DBAppConnectionLimit: 5,
		MilestoneStep:        50,
		ItemRange:            80,
		InventoryCap:         3,
		EquipSlots:           1,
		NameMax:              20,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Every model the service migrates must exist in the init DDL
	for _, model := range []interface{}{
		&models.GachaProfile{},
		&models.Holding{},
		&models.ItemRegistry{},
		&models.TenureEntry{},
		&models.SuccessionEntry{},
		&models.GachaEvent{},
	} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("Init DDL is missing the table for %T", model)
		}
	}

	t.Run("RollAndClaim", func(t *testing.T) {
		profile := models.GachaProfile{UserID: "alice", UserName: "Alice", TotalExperience: 60}
		if err := db.Create(&profile).Error; err != nil {
			t.Fatalf("Failed to create profile: %v", err)
		}

		result, err := services.Roll(db, cfg, fixedPicker{itemID: 7}, "alice", "course-1")
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if result.Kind != services.RollUndiscovered {
			t.Errorf("Expected undiscovered, got %s", result.Kind)
		}

		claim, err := services.Claim(db, cfg, "alice", "course-1", 7, "Shiny", nil)
		if err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		if claim.Outcome != services.OutcomeNewPrimary {
			t.Errorf("Expected new_primary, got %s", claim.Outcome)
		}
	})

	t.Run("ConcurrentRollsConsumeOneMilestone", func(t *testing.T) {
		profile := models.GachaProfile{UserID: "bob", UserName: "Bob", TotalExperience: 60}
		if err := db.Create(&profile).Error; err != nil {
			t.Fatalf("Failed to create profile: %v", err)
		}

		// Under row locking exactly one of the racing rolls may win
		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = services.Roll(db, cfg, fixedPicker{itemID: int64(i + 1)}, "bob", "course-1")
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else if err != services.ErrMilestoneNotReached {
				t.Errorf("Unexpected roll error: %v", err)
			}
		}
		if wins != 1 {
			t.Errorf("Expected exactly 1 winning roll, got %d", wins)
		}
	})

	t.Run("ConcurrentFirstClaims", func(t *testing.T) {
		users := []string{"carol", "dave"}
		for _, u := range users {
			profile := models.GachaProfile{UserID: u, UserName: u}
			if err := db.Create(&profile).Error; err != nil {
				t.Fatalf("Failed to create profile: %v", err)
			}
		}

		// Both race the very first claim of one item. The loser's insert
		// hits the unique (course_id, item_id) index and must land in the
		// secondary branch on retry, never surface as a raw constraint error.
		var wg sync.WaitGroup
		results := make([]*services.ClaimResult, len(users))
		errs := make([]error, len(users))
		for i, u := range users {
			wg.Add(1)
			go func(i int, u string) {
				defer wg.Done()
				results[i], errs[i] = services.Claim(db, cfg, u, "course-2", 11, "Nova", nil)
			}(i, u)
		}
		wg.Wait()

		primaries, secondaries := 0, 0
		for i, err := range errs {
			if err != nil {
				t.Fatalf("Claim by %s failed: %v", users[i], err)
			}
			switch results[i].Outcome {
			case services.OutcomeNewPrimary:
				primaries++
			case services.OutcomeNewSecondary:
				secondaries++
			}
		}
		if primaries != 1 || secondaries != 1 {
			t.Errorf("Expected one primary and one secondary, got %d/%d", primaries, secondaries)
		}

		var registry models.ItemRegistry
		if err := db.Where("course_id = ? AND item_id = ?", "course-2", 11).First(&registry).Error; err != nil {
			t.Fatalf("Failed to load registry: %v", err)
		}
		if registry.HolderCount != 2 {
			t.Errorf("Expected holder count 2, got %d", registry.HolderCount)
		}
		if registry.NextGeneration != 3 {
			t.Errorf("Expected next generation 3, got %d", registry.NextGeneration)
		}
	})
}
