package rewards

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mindfultime/mindfultime-server/internal/models"
	"github.com/mindfultime/mindfultime-server/internal/repository"
	"github.com/mindfultime/mindfultime-server/pkg/logger"
)

type testEnv struct {
	service    *Service
	db         *repository.DB
	ledgerRepo *repository.LedgerRepository
	appRepo    *repository.AppRepository
	user       *models.User
}

func setupService(t *testing.T, cache Cache) *testEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db := &repository.DB{DB: gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewAppRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	user := &models.User{Email: "alice@example.com"}
	if err := userRepo.Create(user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	service := NewService(
		ledgerRepo, userRepo, appRepo, achievementRepo,
		cache, 30*time.Second, 100,
		logger.New("error", "json", "stdout"),
	)
	return &testEnv{service: service, db: db, ledgerRepo: ledgerRepo, appRepo: appRepo, user: user}
}

func (e *testEnv) createApp(t *testing.T, name string, limit, used int, blocked bool) *models.MonitoredApp {
	t.Helper()
	app := &models.MonitoredApp{
		UserID:      e.user.ID,
		Name:        name,
		PackageName: "com.example." + name,
		DailyLimit:  limit,
		UsedTime:    used,
		IsBlocked:   blocked,
	}
	if err := e.appRepo.Create(app); err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	return app
}

func TestService_Earn_NoBonus(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	result, err := env.service.Earn(ctx, env.user.ID, 30, nil, 1, true)
	if err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	if result.Total != 30 || result.Bonus != 0 {
		t.Errorf("Expected total 30 with no bonus, got %+v", result)
	}

	balance, err := env.service.GetBalance(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("GetBalance() failed: %v", err)
	}
	if balance.Available != 30 {
		t.Errorf("Expected available 30, got %d", balance.Available)
	}
}

func TestService_Earn_WithStreakBonus(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	result, err := env.service.Earn(ctx, env.user.ID, 20, nil, 7, true)
	if err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	if result.Total != 25 || result.Bonus != 5 || result.Multiplier != 1.25 {
		t.Errorf("Expected 20 * 1.25 = 25 with bonus 5, got %+v", result)
	}

	txns, err := env.service.GetHistory(ctx, env.user.ID, 0)
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("Expected separate earned and bonus transactions, got %d", len(txns))
	}

	balance, _ := env.service.GetBalance(ctx, env.user.ID)
	if balance.TotalEarned != 25 || balance.Available != 25 {
		t.Errorf("Expected balance 25, got %+v", balance)
	}
}

func TestService_Earn_BonusNotApplied(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	result, err := env.service.Earn(ctx, env.user.ID, 20, nil, 7, false)
	if err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	if result.Total != 20 || result.Bonus != 0 {
		t.Errorf("Expected flat 20 without bonus flag, got %+v", result)
	}
}

func TestService_Spend_InsufficientBalance(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()
	app := env.createApp(t, "insta", 60, 0, false)

	if _, err := env.service.Earn(ctx, env.user.ID, 20, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}

	ok, err := env.service.Spend(ctx, env.user.ID, app.ID, 30, "")
	if err != nil {
		t.Fatalf("Spend() failed: %v", err)
	}
	if ok {
		t.Fatal("Expected spend of 30 against balance of 20 to be rejected")
	}

	// Nothing mutated.
	balance, _ := env.service.GetBalance(ctx, env.user.ID)
	if balance.Available != 20 || balance.Spent != 0 {
		t.Errorf("Expected untouched balance, got %+v", balance)
	}
	reloaded, _ := env.appRepo.GetByID(app.ID)
	if reloaded.DailyLimit != 60 {
		t.Errorf("Expected app limit untouched, got %d", reloaded.DailyLimit)
	}
}

func TestService_Spend_Success(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()
	app := env.createApp(t, "insta", 60, 65, true)

	if _, err := env.service.Earn(ctx, env.user.ID, 100, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	if err := env.ledgerRepo.CreateAllocation(&models.RewardAllocation{
		UserID:      env.user.ID,
		AppID:       app.ID,
		Minutes:     15,
		AllocatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("CreateAllocation() failed: %v", err)
	}

	// available = 100 - 0 - 15 = 85
	ok, err := env.service.Spend(ctx, env.user.ID, app.ID, 30, "more insta time")
	if err != nil {
		t.Fatalf("Spend() failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected spend to succeed")
	}

	balance, _ := env.service.GetBalance(ctx, env.user.ID)
	if balance.Spent != 30 {
		t.Errorf("Expected spent 30, got %d", balance.Spent)
	}
	// Allocation pool of 15 fully consumed by the 30-minute spend.
	if balance.PendingAllocation != 0 {
		t.Errorf("Expected pending pool emptied, got %d", balance.PendingAllocation)
	}
	// 100 - 30 - 0 = 70
	if balance.Available != 70 {
		t.Errorf("Expected available 70, got %d", balance.Available)
	}

	reloaded, _ := env.appRepo.GetByID(app.ID)
	if reloaded.DailyLimit != 90 {
		t.Errorf("Expected limit raised to 90, got %d", reloaded.DailyLimit)
	}
	if reloaded.IsBlocked {
		t.Error("Expected app unblocked, new limit 90 exceeds used 65")
	}
}

func TestService_Spend_StaysBlockedWhenStillOverLimit(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()
	app := env.createApp(t, "insta", 60, 120, true)

	if _, err := env.service.Earn(ctx, env.user.ID, 100, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}

	ok, err := env.service.Spend(ctx, env.user.ID, app.ID, 30, "")
	if err != nil {
		t.Fatalf("Spend() failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected spend to succeed")
	}

	reloaded, _ := env.appRepo.GetByID(app.ID)
	if !reloaded.IsBlocked {
		t.Error("Expected app to stay blocked, new limit 90 below used 120")
	}
}

func TestService_Spend_RejectsForeignApp(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	other := &models.User{Email: "bob@example.com"}
	if err := repository.NewUserRepository(env.db).Create(other); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	foreign := &models.MonitoredApp{UserID: other.ID, Name: "insta", PackageName: "com.example.insta", DailyLimit: 60}
	if err := env.appRepo.Create(foreign); err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	if _, err := env.service.Earn(ctx, env.user.ID, 100, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}

	ok, err := env.service.Spend(ctx, env.user.ID, foreign.ID, 30, "")
	if err != nil {
		t.Fatalf("Spend() failed: %v", err)
	}
	if ok {
		t.Error("Expected spend on another user's app to be rejected")
	}
}

// fakeCache is an in-memory Cache for summary tests.
type fakeCache struct {
	mu    sync.Mutex
	store map[string]string
	sets  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.store, key)
	}
	return nil
}

func TestService_GetSummary_CachesAndInvalidates(t *testing.T) {
	cache := newFakeCache()
	env := setupService(t, cache)
	ctx := context.Background()

	if _, err := env.service.Earn(ctx, env.user.ID, 30, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}

	summary, err := env.service.GetSummary(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if summary.Balance.Available != 30 {
		t.Errorf("Expected available 30 in summary, got %d", summary.Balance.Available)
	}
	if cache.sets != 1 {
		t.Errorf("Expected summary written to cache once, got %d writes", cache.sets)
	}

	// Second read is served from cache.
	if _, err := env.service.GetSummary(ctx, env.user.ID); err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("Expected cache hit on second read, got %d writes", cache.sets)
	}

	// A write invalidates; the next read reflects the new balance.
	if _, err := env.service.Earn(ctx, env.user.ID, 10, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	fresh, err := env.service.GetSummary(ctx, env.user.ID)
	if err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if fresh.Balance.Available != 40 {
		t.Errorf("Expected available 40 after invalidation, got %d", fresh.Balance.Available)
	}
}

func TestService_GetHistory_CapsLimit(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := env.service.Earn(ctx, env.user.ID, 10, nil, 0, false); err != nil {
			t.Fatalf("Earn() failed: %v", err)
		}
	}

	txns, err := env.service.GetHistory(ctx, env.user.ID, 3)
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(txns) != 3 {
		t.Errorf("Expected 3 transactions with explicit limit, got %d", len(txns))
	}

	all, err := env.service.GetHistory(ctx, env.user.ID, 0)
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Expected default page to return all 5, got %d", len(all))
	}
}

func TestService_GetHistoryByType(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	// One earned row with a bonus row alongside, one plain earned row.
	if _, err := env.service.Earn(ctx, env.user.ID, 20, nil, 7, true); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}
	if _, err := env.service.Earn(ctx, env.user.ID, 10, nil, 0, false); err != nil {
		t.Fatalf("Earn() failed: %v", err)
	}

	bonuses, err := env.service.GetHistoryByType(ctx, env.user.ID, models.TransactionBonus)
	if err != nil {
		t.Fatalf("GetHistoryByType() failed: %v", err)
	}
	if len(bonuses) != 1 || bonuses[0].Amount != 5 {
		t.Fatalf("Expected one 5-minute bonus row, got %+v", bonuses)
	}

	earned, err := env.service.GetHistoryByType(ctx, env.user.ID, models.TransactionEarned)
	if err != nil {
		t.Fatalf("GetHistoryByType() failed: %v", err)
	}
	if len(earned) != 2 {
		t.Errorf("Expected 2 earned rows, got %d", len(earned))
	}
}
