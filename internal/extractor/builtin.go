package extractor

import "golang-ledger-reconciler/internal/parsers"

// DefaultStatusAllow matches settled transactions. Terms match as words
// with short inflected endings, never inside longer words.
var DefaultStatusAllow = []string{
	"aprovad", "processad", "pago", "paga", "liquidad", "concluid", "approved", "paid", "settled",
}

// DefaultStatusDeny wins over the allow-list.
var DefaultStatusDeny = []string{
	"cancel", "estorn", "negad", "recusad", "desfeit", "nao aprovad", "chargeback",
	"refunded", "rejected", "denied", "reversed",
	"pendente", "aguardando", "em processamento", "em analise", "pending", "in_process",
}

// DefaultVoucherKeywords are benefit-voucher brands routed through card
// acquirers. Acquirer names are left out on purpose; add them through
// configuration when an acquirer's voucher-branded sales must be excluded.
var DefaultVoucherKeywords = []string{
	"alelo", "sodexo", "pluxee", "ticket", "vr beneficios", "vr refeicao", "vr alimentacao",
	"ben visa vale", "verocard", "greencard", "valecard", "goodcard", "up brasil", "vale refeicao",
	"vale alimentacao", "voucher",
}

var (
	genericDate  = parsers.Synonyms{"data da venda", "data de venda", "data da transação", "data", "date", "data do pagamento"}
	genericGross = parsers.Synonyms{"valor bruto", "valor da venda", "valor bruto da venda", "valor", "amount", "gross amount"}
	genericNet   = parsers.Synonyms{"valor líquido", "valor liquido", "net amount", "líquido"}
	genericFee   = parsers.Synonyms{"taxa", "tarifa", "valor da taxa", "taxa/tarifa", "taxas", "desconto", "fee"}
	genericStat  = parsers.Synonyms{"status", "situação", "status da venda", "status da transação"}
	genericBrand = parsers.Synonyms{"bandeira", "brand", "produto"}
	genericCard  = parsers.Synonyms{"número do cartão", "numero do cartao", "cartão", "card number"}
	genericAuth  = parsers.Synonyms{"código de autorização", "codigo de autorizacao", "autorização", "authorization code"}
)

// builtinRules returns fresh copies of the shipped operator rules.
func builtinRules() []*Rule {
	return []*Rule{
		{
			ID:        "cabal",
			Name:      "Cabal",
			FileHints: []string{"cabal"},
			Columns: map[Logical]parsers.Synonyms{
				ColDate:   {"data da transação", "data da transacao", "data da venda"},
				ColGross:  {"valor parcela bruto", "valor bruto"},
				ColFee:    {"desconto parcela", "desconto"},
				ColNet:    {"valor parcela liquido", "valor parcela líquido", "valor líquido"},
				ColStatus: {"status"},
				ColBrand:  {"bandeira"},
				ColCard:   {"número do cartão", "numero do cartao"},
				ColAuth:   {"código de autorização", "autorização"},
			},
			StatusAllow:        []string{"processada", "aprovad"},
			GrossIsInstallment: true,
			FeeStrategy:        FeeAuto,
			FeeGranularity:     GranularityFile,
		},
		{
			ID:        "cielo",
			Name:      "Cielo",
			FileHints: []string{"cielo"},
			Columns: map[Logical]parsers.Synonyms{
				ColDate:   {"data da venda", "data de venda", "data"},
				ColGross:  {"valor bruto", "valor da venda"},
				ColFee:    {"taxa/tarifa", "valor da taxa", "taxas", "tarifa"},
				ColNet:    {"valor líquido", "valor liquido"},
				ColStatus: {"status", "status da venda"},
				ColBrand:  {"bandeira"},
				ColCard:   {"número do cartão", "numero do cartao", "cartão"},
				ColAuth:   {"código de autorização", "codigo de autorizacao", "código da autorização"},
			},
			StatusAllow:    []string{"aprovada"},
			FeeStrategy:    FeeAuto,
			FeeGranularity: GranularityFile,
		},
		{
			ID:        "rede",
			Name:      "Rede",
			FileHints: []string{"rede"},
			Columns: map[Logical]parsers.Synonyms{
				ColDate:  {"data da venda", "data"},
				ColGross: {"valor da venda atualizado", "valor da venda original", "valor da venda"},
				ColFee: {
					"valor total das taxas descontadas (MDR+recebimento automático)",
					"valor total das taxas descontadas",
					"valor da taxa mdr",
				},
				ColNet:    {"valor líquido", "valor liquido"},
				ColStatus: {"status da venda", "status"},
				ColBrand:  {"bandeira"},
				ColCard:   {"número do cartão", "numero do cartao"},
				ColAuth:   {"número da autorização (auto)", "número da autorização", "autorização"},
				ColWallet: {"id carteira digital"},
			},
			StatusAllow:    []string{"aprovada"},
			CardFallback:   ColWallet,
			FeeStrategy:    FeeAuto,
			FeeGranularity: GranularityFile,
		},
		{
			ID:        "caixa",
			Name:      "Caixa Pagamentos",
			FileHints: []string{"caixa"},
			Columns: map[Logical]parsers.Synonyms{
				ColDate:        {"data da venda", "data"},
				ColGross:       {"valor bruto da parcela", "valor bruto"},
				ColFee:         {"valor da taxa (mdr)", "valor da taxa"},
				ColNet:         {"valor líquido da parcela/transação", "valor líquido da parcela", "valor líquido"},
				ColStatus:      {"status"},
				ColBrand:       {"bandeira"},
				ColCard:        {"número do cartão", "numero do cartao"},
				ColAuth:        {"código de autorização", "autorização"},
				ColInstallment: {"parcela", "número da parcela"},
			},
			StatusAllow:        []string{"aprovada"},
			GrossIsInstallment: true,
			FeeStrategy:        FeeAuto,
			FeeGranularity:     GranularityFile,
			Description:        "Venda Caixa",
		},
		{
			ID:        "mercadopago",
			Name:      "Mercado Pago",
			FileHints: []string{"mercado pago", "mercadopago", "mercado_pago", "export-activities"},
			Columns: map[Logical]parsers.Synonyms{
				ColDate:   {"data de creditação (date_approved)", "date_approved", "data de creditação"},
				ColGross:  {"valor do produto (transaction_amount)", "transaction_amount", "valor do produto"},
				ColFee:    {"tarifa do mercado pago (mercadopago_fee)", "mercadopago_fee", "tarifa do mercado pago"},
				ColNet:    {"valor recebido (net_received_amount)", "net_received_amount"},
				ColStatus: {"status da operação (status)", "status"},
				ColBrand:  {"meio de pagamento (payment_type)", "payment_type", "meio de pagamento"},
				ColAuth:   {"número da operação (operation_id)", "operation_id"},
			},
			StatusAllow: []string{"approved", "aprovad"},
			StatusDeny:  []string{"refunded", "cancelled", "rejected", "charged_back", "in_mediation"},
			ExtraFees: []ExtraFee{
				{Column: parsers.Synonyms{"custos de parcelamento (financing_fee)", "financing_fee"}, Note: "Custo de parcelamento"},
			},
			FeeStrategy:    FeeColumn,
			FeeGranularity: GranularityFile,
		},
		{
			ID:        "voucher_refund",
			Name:      "Reembolso Voucher",
			FileHints: []string{"reembolso", "refund"},
			Columns: map[Logical]parsers.Synonyms{
				ColPaymentDate: {"data de pagamento", "data do pagamento", "data do reembolso", "data de crédito"},
				ColGross:       {"valor bruto", "valor da transação", "valor"},
				ColNet:         {"valor líquido", "valor liquido", "valor a receber"},
			},
			FeesOnly:       true,
			DateColumn:     ColPaymentDate,
			FeeStrategy:    FeeGrossMinusNet,
			FeeGranularity: GranularityDay,
			FeeNote:        "Taxa de reembolso",
		},
		{
			ID:   GenericRuleID,
			Name: "Generico",
			Columns: map[Logical]parsers.Synonyms{
				ColDate:   genericDate,
				ColGross:  genericGross,
				ColNet:    genericNet,
				ColFee:    genericFee,
				ColStatus: genericStat,
				ColBrand:  genericBrand,
				ColCard:   genericCard,
				ColAuth:   genericAuth,
			},
			FeeStrategy:    FeeAuto,
			FeeGranularity: GranularityFile,
			Lenient:        true,
		},
	}
}
