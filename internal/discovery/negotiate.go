package discovery

import (
	"context"
	"fmt"
	"strconv"
	"time"

	domainagreement "github.com/agentcommerce/acp-core/internal/domain/agreement"
)

// AgreementDrafter is the subset of internal/agreement.Store negotiation
// drafts through.
type AgreementDrafter interface {
	Draft(ctx context.Context, a domainagreement.Agreement) (domainagreement.Agreement, error)
}

// CounterOffer is returned when a negotiation proposal is rejected
// (spec.md §4.6).
type CounterOffer struct {
	Price    float64
	Deadline time.Time
	Terms    []domainagreement.Term
}

// NegotiationResult is the outcome of Negotiate.
type NegotiationResult struct {
	Accepted     bool
	Agreement    *domainagreement.Agreement
	CounterOffer *CounterOffer
}

// minAcceptableNotice is the minimum lead time a proposed deadline must
// clear to be accepted (spec.md §4.6: "proposedDeadline >= now + 24h").
const minAcceptableNotice = 24 * time.Hour

// counterOfferNotice is the lead time offered back on rejection
// (spec.md §4.6: "deadline = now + 7d").
const counterOfferNotice = 7 * 24 * time.Hour

// Negotiate evaluates a proposal against match's listed price, drafting an
// unsigned two-party agreement on acceptance or a counter-offer on
// rejection.
func (e *Engine) Negotiate(ctx context.Context, drafter AgreementDrafter, buyer string, match Match, proposedPrice *float64, proposedDeadline *time.Time, customTerms []domainagreement.Term) (NegotiationResult, error) {
	servicePrice, err := strconv.ParseFloat(match.Service.Pricing.Amount, 64)
	if err != nil {
		servicePrice = 0
	}

	now := time.Now().UTC()
	priceOK := proposedPrice == nil || *proposedPrice >= servicePrice
	deadlineOK := proposedDeadline == nil || !proposedDeadline.Before(now.Add(minAcceptableNotice))

	if priceOK && deadlineOK {
		price := servicePrice
		if proposedPrice != nil {
			price = *proposedPrice
		}
		deadline := now.Add(minAcceptableNotice)
		if proposedDeadline != nil {
			deadline = *proposedDeadline
		}

		terms := buildTerms(price, match.Service.Pricing.Currency, deadline, customTerms)
		draft := domainagreement.Agreement{
			Title: fmt.Sprintf("%s service agreement", match.Service.Capability.Name),
			Parties: []domainagreement.Party{
				{Address: buyer, Role: "buyer"},
				{Address: match.Agent.Address, Role: "seller"},
			},
			Terms:      terms,
			TotalValue: &price,
			Currency:   match.Service.Pricing.Currency,
			EndDate:    &deadline,
		}

		drafted, err := drafter.Draft(ctx, draft)
		if err != nil {
			return NegotiationResult{}, err
		}
		return NegotiationResult{Accepted: true, Agreement: &drafted}, nil
	}

	return NegotiationResult{
		Accepted: false,
		CounterOffer: &CounterOffer{
			Price:    servicePrice,
			Deadline: now.Add(counterOfferNotice),
			Terms:    buildTerms(servicePrice, match.Service.Pricing.Currency, now.Add(counterOfferNotice), customTerms),
		},
	}, nil
}

func buildTerms(price float64, currency string, deadline time.Time, customTerms []domainagreement.Term) []domainagreement.Term {
	terms := []domainagreement.Term{
		{
			ID:          "payment",
			Type:        domainagreement.TermPayment,
			Description: fmt.Sprintf("pay %.2f %s on completion", price, currency),
			Value:       &price,
		},
		{
			ID:          "deliverable",
			Type:        domainagreement.TermDeliverable,
			Description: "service delivered as listed",
		},
		{
			ID:          "deadline",
			Type:        domainagreement.TermDeadline,
			Description: "complete by the agreed deadline",
			DueDate:     &deadline,
		},
	}
	return append(terms, customTerms...)
}
