package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ISO20022Settlement builds pacs.008 credit-transfer messages for transfer
// legs whose destination IBAN is held at another institution and hands them
// to the interbank settlement system.
type ISO20022Settlement struct {
	bic      string
	currency string
}

func NewISO20022Settlement() *ISO20022Settlement {
	viper.SetDefault("settlement.bic", "ATLAESMM")
	viper.SetDefault("settlement.currency", "EUR")
	return &ISO20022Settlement{
		bic:      viper.GetString("settlement.bic"),
		currency: viper.GetString("settlement.currency"),
	}
}

func (s *ISO20022Settlement) SendCreditTransfer(ctx context.Context, originIBAN, destinationIBAN, beneficiary string, amount decimal.Decimal) error {
	doc := s.buildPacs008(originIBAN, destinationIBAN, beneficiary, amount)

	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pacs.008: %w", err)
	}

	// The interbank gateway consumes these over a file drop; until that
	// integration lands the message is only logged.
	log.Printf("[SETTLEMENT] pacs.008 for %s -> %s:\n%s", originIBAN, destinationIBAN, string(xmlData))
	return nil
}

func (s *ISO20022Settlement) buildPacs008(originIBAN, destinationIBAN, beneficiary string, amount decimal.Decimal) *pacs_v08.FIToFICustomerCreditTransferV08 {
	msgId := uuid.New().String()
	now := time.Now()
	value := amount.InexactFloat64()

	return &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(now),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(s.currency),
				Value: value,
			},
			IntrBkSttlmDt: (*common.ISODate)(&now),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG",
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(msgId)}[0],
					EndToEndId: common.Max35Text(msgId),
					TxId:       &[]common.Max35Text{common.Max35Text(msgId)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(s.currency),
					Value: value,
				},
				IntrBkSttlmDt: (*common.ISODate)(&now),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(s.bic)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(originIBAN)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(beneficiary)}[0],
				},
			},
		},
	}
}
