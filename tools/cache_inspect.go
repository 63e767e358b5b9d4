package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"polychat/translation"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Lists the entries of an on-disk translation cache (TRANSLATION_CACHE_PATH).
func main() {
	dbPath := flag.String("db", "./data/translations", "Path to the translation cache")
	target := flag.String("target", "", "Only show translations into this language")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Source", "Target", "Text", "Translation", "Expires"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(translation.CachePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			source, tgt, ok := translation.ParseCacheKey(key)
			if !ok {
				fmt.Printf("Skipping unknown key %s\n", key)
				continue
			}
			if *target != "" && tgt != *target {
				continue
			}

			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entry, err := translation.DecodeCacheEntry(value)
			if err != nil {
				fmt.Printf("Skipping unreadable entry %s\n", key)
				continue
			}

			expires := "never"
			if at := item.ExpiresAt(); at > 0 {
				expires = time.Unix(int64(at), 0).Format(time.DateTime)
			}
			table.Append([]string{key, source, tgt, truncate(entry.SourceText, 40), truncate(entry.TranslatedText, 40), expires})
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func truncate(s string, limit int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-1]) + "…"
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
