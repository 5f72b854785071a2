package service

import (
	"context"
	"fmt"

	"rewardledger/models"

	"github.com/google/uuid"
)

// ProcessorLimits bounds the money movement operations
type ProcessorLimits struct {
	MinWithdrawal             int64
	MaxDeposit                int64
	StarsConversionFeePercent int64
}

// TransactionProcessor validates one monetary intent and applies it through
// the ledger store. Every method runs inside the caller's unit of work.
type TransactionProcessor struct {
	ledger *LedgerStore
	limits ProcessorLimits
}

func NewTransactionProcessor(ledger *LedgerStore, limits ProcessorLimits) *TransactionProcessor {
	return &TransactionProcessor{ledger: ledger, limits: limits}
}

// Deposit credits coins_balance
func (p *TransactionProcessor) Deposit(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", models.ErrInvalidAmount)
	}
	if p.limits.MaxDeposit > 0 && amount > p.limits.MaxDeposit {
		return nil, fmt.Errorf("%w: deposit exceeds maximum of %d", models.ErrInvalidAmount, p.limits.MaxDeposit)
	}

	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindDeposit,
		CurrencyField: models.CurrencyCoins,
		Amount:        amount,
		Description:   "Deposit",
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, amount), nil
}

// Withdraw debits withdrawable_balance and records a pending withdrawal.
// Settlement with the outside world happens elsewhere.
func (p *TransactionProcessor) Withdraw(ctx context.Context, wallet *models.Wallet, amount int64) (*models.TransactionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: withdrawal amount must be positive", models.ErrInvalidAmount)
	}
	if amount < p.limits.MinWithdrawal || wallet.WithdrawableBalance < p.limits.MinWithdrawal {
		return nil, fmt.Errorf("%w: minimum is %d", models.ErrBelowMinimumWithdrawal, p.limits.MinWithdrawal)
	}

	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     wallet.AccountID,
		Kind:          models.EntryKindWithdrawal,
		CurrencyField: models.CurrencyWithdrawable,
		Amount:        -amount,
		Status:        models.EntryStatusPending,
		Description:   "Withdrawal request",
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, amount), nil
}

// Transfer moves amount between two counters of the same account. Only
// coins and withdrawable earnings are interchangeable.
func (p *TransactionProcessor) Transfer(ctx context.Context, accountID string, from, to models.CurrencyField, amount int64) (*models.TransactionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidAmount)
	}
	if !transferAllowed(from, to) {
		return nil, fmt.Errorf("%w: cannot transfer from %s to %s", models.ErrInvalidCurrencyField, from, to)
	}

	correlationID := uuid.New()
	if _, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindTransfer,
		CurrencyField: from,
		Amount:        -amount,
		CorrelationID: correlationID,
		Description:   fmt.Sprintf("Transfer to %s", to),
	}); err != nil {
		return nil, err
	}
	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindTransfer,
		CurrencyField: to,
		Amount:        amount,
		CorrelationID: correlationID,
		Description:   fmt.Sprintf("Transfer from %s", from),
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, amount), nil
}

// TransferBetweenAccounts moves coins from one account to another. Both
// accounts must already be locked by the caller.
func (p *TransactionProcessor) TransferBetweenAccounts(ctx context.Context, fromID, toID string, amount int64) (*models.TransferResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", models.ErrInvalidAmount)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to the same account", models.ErrInvalidAmount)
	}

	correlationID := uuid.New()
	debit, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     fromID,
		Kind:          models.EntryKindTransfer,
		CurrencyField: models.CurrencyCoins,
		Amount:        -amount,
		CorrelationID: correlationID,
		Description:   "Transfer out",
		Metadata:      map[string]any{"recipient_account_id": toID},
	})
	if err != nil {
		return nil, err
	}
	credit, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     toID,
		Kind:          models.EntryKindTransfer,
		CurrencyField: models.CurrencyCoins,
		Amount:        amount,
		CorrelationID: correlationID,
		Description:   "Transfer in",
		Metadata:      map[string]any{"sender_account_id": fromID},
	})
	if err != nil {
		return nil, err
	}

	return &models.TransferResult{
		CorrelationID: correlationID,
		Amount:        amount,
		From:          debit.Wallet.Balances(),
		To:            credit.Wallet.Balances(),
	}, nil
}

// ConvertStars exchanges stars for coins, keeping the conversion fee
func (p *TransactionProcessor) ConvertStars(ctx context.Context, accountID string, amount int64) (*models.TransactionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: conversion amount must be positive", models.ErrInvalidAmount)
	}
	fee := amount * p.limits.StarsConversionFeePercent / 100
	credited := amount - fee
	if credited <= 0 {
		return nil, fmt.Errorf("%w: conversion of %d stars yields no coins", models.ErrInvalidAmount, amount)
	}

	correlationID := uuid.New()
	metadata := map[string]any{"stars": amount, "fee": fee, "coins": credited}
	if _, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindConversion,
		CurrencyField: models.CurrencyStars,
		Amount:        -amount,
		CorrelationID: correlationID,
		Description:   "Stars converted to coins",
		Metadata:      metadata,
	}); err != nil {
		return nil, err
	}
	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindConversion,
		CurrencyField: models.CurrencyCoins,
		Amount:        credited,
		CorrelationID: correlationID,
		Description:   "Coins from stars conversion",
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, credited), nil
}

// DebitForVip charges a subscription or renewal fee against coins_balance.
// A zero fee records nothing and returns a nil result.
func (p *TransactionProcessor) DebitForVip(ctx context.Context, accountID string, fee int64, level int) (*models.TransactionResult, error) {
	if fee < 0 {
		return nil, fmt.Errorf("%w: negative vip fee", models.ErrInvalidAmount)
	}
	if fee == 0 {
		return nil, nil
	}
	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindVipFee,
		CurrencyField: models.CurrencyCoins,
		Amount:        -fee,
		Description:   fmt.Sprintf("VIP level %d fee", level),
		Metadata:      map[string]any{"level": level},
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, fee), nil
}

// CreditReward pays an earned reward into the given counter
func (p *TransactionProcessor) CreditReward(ctx context.Context, accountID string, amount int64, field models.CurrencyField, metadata map[string]any) (*models.TransactionResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: reward amount must be positive", models.ErrInvalidAmount)
	}
	applied, err := p.ledger.ApplyEntry(ctx, EntryRequest{
		AccountID:     accountID,
		Kind:          models.EntryKindRewardCredit,
		CurrencyField: field,
		Amount:        amount,
		Description:   "Activity reward",
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	return resultOf(applied, amount), nil
}

func transferAllowed(from, to models.CurrencyField) bool {
	return (from == models.CurrencyCoins && to == models.CurrencyWithdrawable) ||
		(from == models.CurrencyWithdrawable && to == models.CurrencyCoins)
}

func resultOf(applied *AppliedEntry, amount int64) *models.TransactionResult {
	return &models.TransactionResult{
		CorrelationID: applied.Entry.CorrelationID,
		Status:        applied.Entry.Status,
		Amount:        amount,
		CharitySkim:   applied.Skim,
		Balances:      applied.Wallet.Balances(),
	}
}
