package repositories

//go:generate mockgen -source=dynamo.go -destination=dynamo_mock.go -package=repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sbilibin2017/upi-ledger/internal/logger"
	"github.com/sbilibin2017/upi-ledger/internal/models"
)

const (
	dynamoAccountPK     = "ACCOUNT"
	dynamoTransactionPK = "TRANSACTION"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoRepository.
type DynamoAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoRepository stores the ledger in a single DynamoDB table keyed by PK/SK.
// Accounts live under PK=ACCOUNT with SK=<id>; transaction records live under
// PK=TRANSACTION with SK=<zero-padded seq>, so a query returns them in order.
type DynamoRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoRepository creates a repository over table.
func NewDynamoRepository(client DynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

// EnsureTable creates the ledger table if it does not exist and waits until it is active.
func (r *DynamoRepository) EnsureTable(ctx context.Context) error {
	_, err := r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		logger.Log.Infow("dynamodb table already exists", "table", r.table)
		return nil
	}
	if err != nil {
		logger.Log.Errorw("failed to create dynamodb table", "table", r.table, "error", err)
		return fmt.Errorf("create table %s: %w", r.table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(r.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)}, 5*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", r.table, err)
	}

	logger.Log.Infow("dynamodb table created", "table", r.table)
	return nil
}

// Load queries both partitions with strongly consistent reads.
func (r *DynamoRepository) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	accountItems, err := r.queryPartition(ctx, dynamoAccountPK)
	if err != nil {
		return nil, err
	}
	recordItems, err := r.queryPartition(ctx, dynamoTransactionPK)
	if err != nil {
		return nil, err
	}

	snap := &models.LedgerSnapshot{
		Accounts:     make([]models.Account, 0, len(accountItems)),
		Transactions: make([]models.TransactionRecord, 0, len(recordItems)),
	}
	for _, item := range accountItems {
		account, err := decodeAccountItem(item)
		if err != nil {
			return nil, err
		}
		snap.Accounts = append(snap.Accounts, account)
	}
	for _, item := range recordItems {
		record, err := decodeTransactionItem(item)
		if err != nil {
			return nil, err
		}
		snap.Transactions = append(snap.Transactions, record)
	}

	logger.Log.Infow("dynamodb load",
		"table", r.table,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions),
		"error", nil,
	)
	return snap, nil
}

func (r *DynamoRepository) queryPartition(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logger.Log.Errorw("dynamodb query failed", "table", r.table, "pk", pk, "error", err)
			return nil, fmt.Errorf("query %s partition: %w", pk, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// SaveAccount puts a new account item, failing if the id is already taken.
func (r *DynamoRepository) SaveAccount(ctx context.Context, account models.Account) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			"PK":      &types.AttributeValueMemberS{Value: dynamoAccountPK},
			"SK":      &types.AttributeValueMemberS{Value: account.ID},
			"seq":     numberValue(account.Seq),
			"balance": numberValue(account.Balance),
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})

	logger.Log.Infow("dynamodb write",
		"table", r.table,
		"op", "insert",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	if err != nil {
		return fmt.Errorf("put account %q: %w", account.ID, err)
	}
	return nil
}

// SaveBalance updates the balance of an existing account item.
func (r *DynamoRepository) SaveBalance(ctx context.Context, account models.Account) error {
	update := r.balanceUpdate(account)
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 update.TableName,
		Key:                       update.Key,
		UpdateExpression:          update.UpdateExpression,
		ConditionExpression:       update.ConditionExpression,
		ExpressionAttributeNames:  update.ExpressionAttributeNames,
		ExpressionAttributeValues: update.ExpressionAttributeValues,
	})

	logger.Log.Infow("dynamodb write",
		"table", r.table,
		"op", "update",
		"args", []any{account.ID, account.Balance},
		"error", err,
	)
	if err != nil {
		return fmt.Errorf("update balance of %q: %w", account.ID, err)
	}
	return nil
}

// SaveTransfer writes both balances and the record in one TransactWriteItems call.
func (r *DynamoRepository) SaveTransfer(ctx context.Context, from, to models.Account, record models.TransactionRecord) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: r.balanceUpdate(from)},
			{Update: r.balanceUpdate(to)},
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                encodeTransactionItem(record),
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})

	logger.Log.Infow("dynamodb write",
		"table", r.table,
		"op", "transfer",
		"args", []any{record.ID, from.ID, to.ID, record.Amount},
		"error", err,
	)
	if err != nil {
		return fmt.Errorf("write transfer %s: %w", record.ID, err)
	}
	return nil
}

func (r *DynamoRepository) balanceUpdate(account models.Account) *types.Update {
	return &types.Update{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: dynamoAccountPK},
			"SK": &types.AttributeValueMemberS{Value: account.ID},
		},
		UpdateExpression:    aws.String("SET #balance = :balance"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#balance": "balance",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":balance": numberValue(account.Balance),
		},
	}
}

func numberValue(n int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func transactionSortKey(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

func encodeTransactionItem(record models.TransactionRecord) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: dynamoTransactionPK},
		"SK":        &types.AttributeValueMemberS{Value: transactionSortKey(record.Seq)},
		"id":        &types.AttributeValueMemberS{Value: record.ID},
		"seq":       numberValue(record.Seq),
		"timestamp": &types.AttributeValueMemberS{Value: record.Timestamp.UTC().Format(time.RFC3339Nano)},
		"from":      &types.AttributeValueMemberS{Value: record.From},
		"to":        &types.AttributeValueMemberS{Value: record.To},
		"amount":    numberValue(record.Amount),
	}
}

func decodeAccountItem(item map[string]types.AttributeValue) (models.Account, error) {
	id, err := stringAttr(item, "SK")
	if err != nil {
		return models.Account{}, err
	}
	seq, err := numberAttr(item, "seq")
	if err != nil {
		return models.Account{}, fmt.Errorf("account %q: %w", id, err)
	}
	balance, err := numberAttr(item, "balance")
	if err != nil {
		return models.Account{}, fmt.Errorf("account %q: %w", id, err)
	}
	return models.Account{ID: id, Balance: balance, Seq: seq}, nil
}

func decodeTransactionItem(item map[string]types.AttributeValue) (models.TransactionRecord, error) {
	var record models.TransactionRecord
	var err error

	if record.ID, err = stringAttr(item, "id"); err != nil {
		return record, err
	}
	if record.Seq, err = numberAttr(item, "seq"); err != nil {
		return record, fmt.Errorf("transaction %s: %w", record.ID, err)
	}
	if record.From, err = stringAttr(item, "from"); err != nil {
		return record, fmt.Errorf("transaction %s: %w", record.ID, err)
	}
	if record.To, err = stringAttr(item, "to"); err != nil {
		return record, fmt.Errorf("transaction %s: %w", record.ID, err)
	}
	if record.Amount, err = numberAttr(item, "amount"); err != nil {
		return record, fmt.Errorf("transaction %s: %w", record.ID, err)
	}

	ts, err := stringAttr(item, "timestamp")
	if err != nil {
		return record, fmt.Errorf("transaction %s: %w", record.ID, err)
	}
	if record.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return record, fmt.Errorf("transaction %s: parse timestamp: %w", record.ID, err)
	}
	return record, nil
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	v, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %s is missing or not a string", name)
	}
	return v.Value, nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	v, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %s is missing or not a number", name)
	}
	n, err := strconv.ParseInt(v.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %s: %w", name, err)
	}
	return n, nil
}
