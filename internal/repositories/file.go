package repositories

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

const (
	accountsFileName     = "accounts.json"
	transactionsFileName = "transactions.jsonl"
)

// ErrNotLoaded is returned by writes issued before Load has read the files.
var ErrNotLoaded = errors.New("file repository used before Load")

// accountsFile is the on-disk account table. LogLength is the number of log
// records the balances already include; replacing this file is the commit point
// of every mutation.
type accountsFile struct {
	LogLength int64         `json:"log_length"`
	Accounts  []fileAccount `json:"accounts"`
}

type fileAccount struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// FileRepository persists the ledger as two files in a directory:
// accounts.json, replaced atomically on every write, and transactions.jsonl,
// an append-only log with one JSON record per line.
type FileRepository struct {
	mu  sync.Mutex
	dir string

	loaded    bool
	accounts  []fileAccount
	index     map[string]int
	logLength int64
	logSize   int64
}

// NewFileRepository creates the data directory if needed and returns a repository rooted at it.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileRepository{dir: dir, index: make(map[string]int)}, nil
}

func (r *FileRepository) accountsPath() string {
	return filepath.Join(r.dir, accountsFileName)
}

func (r *FileRepository) transactionsPath() string {
	return filepath.Join(r.dir, transactionsFileName)
}

// Load reads both files, creating empty ones if they do not exist yet. Log lines
// past the committed length are leftovers of an interrupted transfer and are truncated.
func (r *FileRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, err := r.readAccounts()
	if err != nil {
		return nil, err
	}

	records, size, err := r.readTransactions(table.LogLength)
	if err != nil {
		return nil, err
	}

	r.accounts = table.Accounts
	r.index = make(map[string]int, len(table.Accounts))
	for i, a := range table.Accounts {
		r.index[a.ID] = i
	}
	r.logLength = table.LogLength
	r.logSize = size
	r.loaded = true

	snap := &models.LedgerSnapshot{
		Accounts:     make([]models.Account, 0, len(table.Accounts)),
		Transactions: records,
	}
	for i, a := range table.Accounts {
		snap.Accounts = append(snap.Accounts, models.Account{ID: a.ID, Balance: a.Balance, Seq: int64(i) + 1})
	}

	logger.Log.Infow("file load",
		"dir", r.dir,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"error", nil,
	)
	return snap, nil
}

func (r *FileRepository) readAccounts() (accountsFile, error) {
	var table accountsFile

	data, err := os.ReadFile(r.accountsPath())
	if errors.Is(err, fs.ErrNotExist) {
		table.Accounts = []fileAccount{}
		if err := r.writeAccounts(table); err != nil {
			return table, err
		}
		return table, nil
	}
	if err != nil {
		return table, fmt.Errorf("read %s: %w", accountsFileName, err)
	}

	if err := json.Unmarshal(data, &table); err != nil {
		return table, fmt.Errorf("decode %s: %w", accountsFileName, err)
	}
	if table.Accounts == nil {
		table.Accounts = []fileAccount{}
	}
	return table, nil
}

// readTransactions returns the first committed records of the log and the byte
// size they occupy, truncating anything after them.
func (r *FileRepository) readTransactions(committed int64) ([]models.TransactionRecord, int64, error) {
	f, err := os.OpenFile(r.transactionsPath(), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", transactionsFileName, err)
	}
	defer f.Close()

	records := make([]models.TransactionRecord, 0, committed)
	reader := bufio.NewReader(f)
	var size int64
	for int64(len(records)) < committed {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", transactionsFileName, err)
		}

		var record models.TransactionRecord
		if err := json.Unmarshal(bytes.TrimSpace(line), &record); err != nil {
			return nil, 0, fmt.Errorf("decode %s line %d: %w", transactionsFileName, len(records)+1, err)
		}
		records = append(records, record)
		size += int64(len(line))
	}

	if int64(len(records)) < committed {
		return nil, 0, fmt.Errorf("%s has %d records, %s expects %d", transactionsFileName, len(records), accountsFileName, committed)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat %s: %w", transactionsFileName, err)
	}
	if info.Size() > size {
		logger.Log.Warnw("discarding uncommitted transaction log tail",
			"file", r.transactionsPath(),
			"committed_bytes", size,
			"file_bytes", info.Size(),
		)
		if err := f.Truncate(size); err != nil {
			return nil, 0, fmt.Errorf("truncate %s: %w", transactionsFileName, err)
		}
		if err := f.Sync(); err != nil {
			return nil, 0, fmt.Errorf("sync %s: %w", transactionsFileName, err)
		}
	}

	return records, size, nil
}

// writeAccounts replaces accounts.json atomically: write a temp file, fsync it,
// rename it over the original and fsync the directory.
func (r *FileRepository) writeAccounts(table accountsFile) error {
	path := r.accountsPath()
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", accountsFileName, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", accountsFileName, err)
	}

	// The rename is the commit; a failed directory sync only weakens durability.
	if err := syncDir(r.dir); err != nil {
		logger.Log.Warnw("failed to sync data dir", "dir", r.dir, "error", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open dir %s: %w", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync dir %s: %w", dir, err)
	}
	return nil
}

// SaveAccount appends a new account to the account table.
func (r *FileRepository) SaveAccount(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return ErrNotLoaded
	}

	if _, ok := r.index[account.ID]; ok {
		return fmt.Errorf("account %q already stored", account.ID)
	}

	accounts := append(slices.Clone(r.accounts), fileAccount{ID: account.ID, Balance: account.Balance})
	err := r.writeAccounts(accountsFile{LogLength: r.logLength, Accounts: accounts})

	logger.Log.Infow("file write",
		"file", r.accountsPath(),
		"op", "insert",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	if err != nil {
		return err
	}

	r.index[account.ID] = len(r.accounts)
	r.accounts = accounts
	return nil
}

// SaveBalance rewrites the account table with the new balance.
func (r *FileRepository) SaveBalance(ctx context.Context, account models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return ErrNotLoaded
	}

	i, ok := r.index[account.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", account.ID)
	}

	accounts := slices.Clone(r.accounts)
	accounts[i].Balance = account.Balance
	err := r.writeAccounts(accountsFile{LogLength: r.logLength, Accounts: accounts})

	logger.Log.Infow("file write",
		"file", r.accountsPath(),
		"op", "update",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	if err != nil {
		return err
	}

	r.accounts = accounts
	return nil
}

// SaveTransfer writes the record after the last committed log line and then commits
// both balances by replacing the account table. If the commit fails the written line
// is truncated.
func (r *FileRepository) SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return ErrNotLoaded
	}

	fi, ok := r.index[from.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", from.ID)
	}
	ti, ok := r.index[to.ID]
	if !ok {
		return fmt.Errorf("account %q is not stored", to.ID)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	line = append(line, '\n')

	accounts := slices.Clone(r.accounts)
	accounts[fi].Balance = from.Balance
	accounts[ti].Balance = to.Balance

	err = r.appendTransaction(line)
	if err == nil {
		err = r.writeAccounts(accountsFile{LogLength: r.logLength + 1, Accounts: accounts})
	}
	if err != nil {
		if terr := os.Truncate(r.transactionsPath(), r.logSize); terr != nil {
			err = errors.Join(err, fmt.Errorf("truncate %s: %w", transactionsFileName, terr))
		}
	}

	logger.Log.Infow("file write",
		"file", r.transactionsPath(),
		"op", "transfer",
		"args", []any{record.ID, from.ID, to.ID, record.Amount},
		"error", err,
	)
	if err != nil {
		return err
	}

	r.accounts = accounts
	r.logLength++
	r.logSize += int64(len(line))
	return nil
}

// appendTransaction writes line at the committed end of the log, overwriting any
// tail a failed commit could not truncate.
func (r *FileRepository) appendTransaction(line []byte) error {
	f, err := os.OpenFile(r.transactionsPath(), os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", transactionsFileName, err)
	}
	if err := f.Truncate(r.logSize); err != nil {
		f.Close()
		return fmt.Errorf("truncate %s: %w", transactionsFileName, err)
	}
	if _, err := f.WriteAt(line, r.logSize); err != nil {
		f.Close()
		return fmt.Errorf("append %s: %w", transactionsFileName, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", transactionsFileName, err)
	}
	return f.Close()
}
