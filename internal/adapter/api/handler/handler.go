package handler

import (
	"tradeloop/internal/usecase"
)

var (
	tradeHandler   *TradeHandler
	listingHandler *ListingHandler
	impactHandler  *ImpactHandler
	reviewHandler  *ReviewHandler
)

func Setup(
	tradeHistoryUseCase *usecase.TradeHistoryUseCase,
	completionUseCase *usecase.CompletionUseCase,
	proofUseCase *usecase.ProofUseCase,
	listingUseCase *usecase.ListingUseCase,
	impactPropagator *usecase.ImpactPropagator,
	reviewUseCase *usecase.ReviewUseCase,
) {
	tradeHandler = NewTradeHandler(tradeHistoryUseCase, completionUseCase, proofUseCase)
	listingHandler = NewListingHandler(listingUseCase)
	impactHandler = NewImpactHandler(impactPropagator)
	reviewHandler = NewReviewHandler(tradeHistoryUseCase, reviewUseCase)
}

func GetTradeHandler() *TradeHandler {
	return tradeHandler
}

func GetListingHandler() *ListingHandler {
	return listingHandler
}

func GetImpactHandler() *ImpactHandler {
	return impactHandler
}

func GetReviewHandler() *ReviewHandler {
	return reviewHandler
}
