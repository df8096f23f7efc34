package order

import "time"

// BankAccount 对公收款账户
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// PaymentInstructions 支付指引
// 对公转账：收款账户 + 付款截止日期；刷卡：回显金额供支付网关使用
type PaymentInstructions struct {
	Method      PaymentMethod `json:"method"`
	Amount      int64         `json:"amount"`
	OrderNumber string        `json:"order_number"`
	Account     *BankAccount  `json:"account,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
}

// NewPaymentInstructions 按支付方式生成支付指引
func NewPaymentInstructions(o *Order, account BankAccount, dueDays int) PaymentInstructions {
	pi := PaymentInstructions{
		Method:      o.PaymentMethod,
		Amount:      o.TotalAmount,
		OrderNumber: o.OrderNumber,
	}

	if o.PaymentMethod == PaymentBankTransfer {
		due := o.CreatedAt.AddDate(0, 0, dueDays)
		acc := account
		pi.Account = &acc
		pi.DueDate = &due
	}
	return pi
}
