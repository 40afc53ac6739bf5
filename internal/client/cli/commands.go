package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/farmledger/internal/client/models"
	"github.com/dmitrijs2005/farmledger/internal/client/services"
)

func (a *App) Register(ctx context.Context) error {
	username, err := a.readString("Username: ")
	if err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	if err := a.session.Register(ctx, username, password); err != nil {
		printlnFn(fmt.Sprintf("Registration failed: %v", err))
		return err
	}
	printlnFn("Registered. You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := a.readString("Username: ")
	if err != nil {
		return err
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	if a.watcher.IsOnline() {
		err = a.session.OnlineLogin(ctx, username, password)
	} else {
		err = a.session.OfflineLogin(ctx, username, password)
	}
	if err != nil {
		printlnFn(fmt.Sprintf("Login failed: %v", err))
		return err
	}
	printlnFn("Logged in.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	printlnFn("Logged out.")
	return nil
}

func (a *App) AddRecord(ctx context.Context) error {
	collection, err := a.readString("Collection (production/financial/health/cows/poultry): ")
	if err != nil {
		return err
	}
	c := models.Collection(collection)
	if !c.Valid() {
		printlnFn(fmt.Sprintf("Unknown collection: %s", collection))
		return nil
	}

	rec := &models.Record{}
	if rec.Date, err = a.readString("Date (YYYY-MM-DD): "); err != nil {
		return err
	}
	if rec.Type, err = a.readString("Type: "); err != nil {
		return err
	}
	if rec.Category, err = a.readString("Category: "); err != nil {
		return err
	}
	if rec.Livestock, err = a.readString("Livestock (dairy/poultry): "); err != nil {
		return err
	}
	if rec.Quantity, err = a.readFloat("Quantity: "); err != nil {
		return err
	}
	if rec.Amount, err = a.readFloat("Amount: "); err != nil {
		return err
	}
	if rec.Notes, err = a.readString("Notes: "); err != nil {
		return err
	}

	id, err := a.records.Create(ctx, c, rec)
	if err != nil {
		printlnFn(fmt.Sprintf("Failed to save record: %v", err))
		return err
	}
	printlnFn(fmt.Sprintf("Saved %s record #%d", c, id))
	return nil
}

func (a *App) ListRecords(ctx context.Context) error {
	collection, err := a.readString("Collection: ")
	if err != nil {
		return err
	}
	c := models.Collection(collection)
	if !c.Valid() {
		printlnFn(fmt.Sprintf("Unknown collection: %s", collection))
		return nil
	}

	recs, err := a.records.Query(ctx, c, models.Filter{})
	if err != nil {
		printlnFn(fmt.Sprintf("Query failed: %v", err))
		return err
	}

	for _, rec := range recs {
		flag := " "
		if !rec.Synced {
			flag = "*"
		}
		printlnFn(fmt.Sprintf("%s #%-5d %s  %-10s qty=%.1f amount=%.2f  %s",
			flag, rec.ID, rec.Date, rec.Type, rec.Quantity, rec.Amount, rec.Notes))
	}
	printlnFn(fmt.Sprintf("%d records (* = not yet synced)", len(recs)))
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res := a.records.ManualSync(ctx)
	switch res.Status {
	case services.SyncStatusSynced:
		printlnFn(fmt.Sprintf("Sync complete: pushed %d, pulled %d", res.Pushed, res.Pulled))
	case services.SyncStatusOffline:
		printlnFn("You are offline. Connect to sync.")
	case services.SyncStatusUnauthenticated:
		printlnFn("Please login to sync data.")
	case services.SyncStatusSyncing:
		printlnFn("Sync already in progress.")
	default:
		printlnFn(fmt.Sprintf("Sync failed: %v", res.Err))
	}
	return res.Err
}

func (a *App) Stats(ctx context.Context) error {
	stats, err := a.records.Stats(ctx)
	if err != nil {
		printlnFn(fmt.Sprintf("Failed to read stats: %v", err))
		return err
	}
	last := "never"
	if stats.LastSyncTime != nil {
		last = stats.LastSyncTime.Local().Format("2006-01-02 15:04:05")
	}
	printlnFn(fmt.Sprintf("Synced: %d  Pending: %d  Failed: %d  Last sync: %s",
		stats.SyncedCount, stats.PendingCount, stats.FailedCount, last))
	return nil
}

func (a *App) KPI(ctx context.Context) error {
	dairy, err := a.reports.DairyKPIs(ctx)
	if err != nil {
		return err
	}
	poultry, err := a.reports.PoultryKPIs(ctx)
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Dairy (30d): milk=%.1f herd=%d active=%d profit=%.2f",
		dairy.MilkYield, dairy.HerdSize, dairy.ActiveCows, dairy.Profit))
	printlnFn(fmt.Sprintf("Poultry (30d): eggs=%.0f flock=%d mortality=%.1f%% profit=%.2f",
		poultry.EggProduction, poultry.FlockSize, poultry.MortalityRate*100, poultry.Profit))
	return nil
}

func (a *App) Export(ctx context.Context, path string) error {
	if path == "" {
		printlnFn("Usage: export <file>")
		return nil
	}
	snap, err := a.records.ExportSnapshot(ctx)
	if err != nil {
		printlnFn(fmt.Sprintf("Export failed: %v", err))
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		printlnFn(fmt.Sprintf("Failed to write %s: %v", path, err))
		return err
	}
	printlnFn(fmt.Sprintf("Exported %d records to %s", snap.Metadata.RecordCount, path))
	return nil
}

func (a *App) Import(ctx context.Context, path string) error {
	if path == "" {
		printlnFn("Usage: import <file>")
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn(fmt.Sprintf("Failed to read %s: %v", path, err))
		return err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		printlnFn(fmt.Sprintf("Invalid snapshot file: %v", err))
		return err
	}
	if err := a.records.ImportSnapshot(ctx, &snap); err != nil {
		printlnFn(fmt.Sprintf("Import failed: %v", err))
		return err
	}
	printlnFn(fmt.Sprintf("Imported %d records from %s", snap.Metadata.RecordCount, path))
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	key, err := a.records.BackupToCloud(ctx)
	if err != nil {
		printlnFn(fmt.Sprintf("Backup failed: %v", err))
		return err
	}
	printlnFn(fmt.Sprintf("Backup uploaded as %s", key))
	return nil
}

func (a *App) ClearRemote(ctx context.Context) error {
	answer, err := a.readString("This will delete all your data from the cloud. Type 'yes' to continue: ")
	if err != nil {
		return err
	}
	if answer != "yes" {
		printlnFn("Aborted.")
		return nil
	}

	if err := a.sync.ClearRemoteData(ctx); err != nil {
		printlnFn(fmt.Sprintf("Failed to clear remote data: %v", err))
		return err
	}
	printlnFn("Remote data cleared.")
	return nil
}
