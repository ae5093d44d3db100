// Package schema defines the fixed feature schema for fraud scoring.
//
// The ordering of the feature lists is contractual: it determines the
// column order of every feature vector produced against this schema,
// and must match the order used when the preprocessor was fitted.
package schema

// Label is the training label column. It is stored alongside the
// features in the training table but never fitted or transformed.
const Label = "fraud_bool"

// Numeric lists the numeric feature names in vector column order.
var Numeric = []string{
	"income",
	"name_email_similarity",
	"prev_address_months_count",
	"current_address_months_count",
	"customer_age",
	"days_since_request",
	"intended_balcon_amount",
	"zip_count_4w",
	"velocity_6h",
	"velocity_24h",
	"velocity_4w",
	"bank_branch_count_8w",
	"date_of_birth_distinct_emails_4w",
	"credit_risk_score",
	"email_is_free",
	"phone_home_valid",
	"phone_mobile_valid",
	"bank_months_count",
	"has_other_cards",
	"proposed_credit_limit",
	"foreign_request",
	"session_length_in_minutes",
	"device_distinct_emails_8w",
	"device_fraud_count",
	"month",
}

// Categorical lists the categorical feature names. Each contributes a
// one-hot indicator block after the numeric columns, in this order.
var Categorical = []string{
	"payment_type",
	"employment_status",
	"housing_status",
	"source",
	"device_os",
}

// Fields returns every feature name, numeric first, in column order.
func Fields() []string {
	out := make([]string, 0, len(Numeric)+len(Categorical))
	out = append(out, Numeric...)
	out = append(out, Categorical...)
	return out
}
