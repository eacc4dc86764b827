package handlers

import (
	"github.com/spec-kit/marketplace-service/internal/api/dto"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/service"
)

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		Name:      user.Name,
		Email:     user.Email,
		Earnings:  user.Earnings,
		CreatedAt: user.CreatedAt,
	}
}

func serviceResponse(svc *domain.Service) dto.ServiceResponse {
	return dto.ServiceResponse{
		ID:                 svc.ID,
		Creator:            svc.Creator,
		CreatorEmail:       svc.CreatorEmail,
		ServiceName:        svc.Name,
		ServiceDescription: svc.Description,
		Category:           svc.Category,
		Price:              svc.Price,
		Deadline:           svc.Deadline,
		IsActive:           svc.IsActive,
		CreatedAt:          svc.CreatedAt,
	}
}

func serviceResponses(services []domain.Service) []dto.ServiceResponse {
	out := make([]dto.ServiceResponse, 0, len(services))
	for i := range services {
		out = append(out, serviceResponse(&services[i]))
	}
	return out
}

func transactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:                tx.ID,
		Buyer:             tx.Buyer,
		BuyerEmail:        tx.BuyerEmail,
		Seller:            tx.Seller,
		SellerEmail:       tx.SellerEmail,
		ServiceID:         tx.ServiceID,
		ServiceQtd:        tx.Quantity,
		TransactionPrice:  tx.Price,
		TransactionStatus: string(tx.Status),
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
	}
}

func transactionResponses(txs []domain.Transaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, transactionResponse(&txs[i]))
	}
	return out
}

func transitionResponse(result *service.TransitionResult) dto.TransitionResponse {
	return dto.TransitionResponse{
		Transaction:   transactionResponse(result.Transaction),
		SellerBalance: result.SellerBalance,
	}
}

func earningsResponse(statement *service.EarningsStatement) dto.EarningsResponse {
	entries := make([]dto.EarningsEntryResponse, 0, len(statement.Entries))
	for _, entry := range statement.Entries {
		entries = append(entries, dto.EarningsEntryResponse{
			ID:            entry.ID,
			TransactionID: entry.TransactionID,
			Kind:          string(entry.Kind),
			Amount:        entry.Amount,
			BalanceAfter:  entry.BalanceAfter,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return dto.EarningsResponse{Email: statement.Email, Earnings: statement.Balance, Entries: entries}
}
