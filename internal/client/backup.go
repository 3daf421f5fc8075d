package client

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/model"
	"github.com/pkg/errors"
)

// An Archive is the content of a backup file.
type Archive struct {
	Items []*model.Item `json:"items"`
	Days  []*model.Day  `json:"days"`
}

// BackupFilename returns a timestamped backup filename.
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("starving_%s.json", t.Format("20060102150405"))
}

// Backup dumps the local items and days into filename.
func Backup(db database.Client, filename string) (Archive, error) {
	var archive Archive
	var err error

	archive.Items, err = db.FindItems(true)
	if err != nil {
		return archive, errors.Wrap(err, "could not get items")
	}

	archive.Days, err = db.FindDays()
	if err != nil {
		return archive, errors.Wrap(err, "could not get days")
	}

	return archive, errors.Wrap(backup(archive, filename), "backup")
}

// Restore loads a backup file into the local store, records keep their timestamps.
func Restore(db database.Client, filename string) (Archive, error) {
	var archive Archive

	data, err := os.ReadFile(filename)
	if err != nil {
		return archive, errors.Wrap(err, "could not load file")
	}
	if err = json.Unmarshal(data, &archive); err != nil {
		return archive, errors.Wrap(err, "could not parse backup")
	}

	for _, item := range archive.Items {
		if err = db.Put(item); err != nil {
			return archive, errors.Wrapf(err, "could not restore item %s", item.ID)
		}
	}
	for _, day := range archive.Days {
		err = db.Put(day)
		if db.IsAlreadyExists(err) {
			// One day per date, the restored membership is merged into the local day.
			existing, ferr := db.FindDayByDate(day.Date)
			if ferr != nil {
				return archive, errors.Wrapf(ferr, "could not restore day %s", day.ID)
			}
			for _, id := range day.ItemIDs {
				existing.Add(id)
			}
			err = db.Put(existing)
		}
		if err != nil {
			return archive, errors.Wrapf(err, "could not restore day %s", day.ID)
		}
	}
	return archive, nil
}

func backup(v any, filename string) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not serialize value to backup")
	}

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "could not create backup file")
	}
	defer f.Close()

	_, err = f.Write(payload)
	if err != nil {
		return errors.Wrap(err, "could not write backuped values")
	}

	return errors.Wrap(f.Sync(), "could not backup")
}
