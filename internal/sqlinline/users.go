package sqlinline

const QInsertUser = `--sql 60c00712-db1c-479e-a6fe-5a6a8b7d2058
insert into users (id, email, name, password_hash, tier, pending_plan, claims_used, claims_remaining, created_at, updated_at)
values (gen_random_uuid(), lower($1::text), $2::text, $3::text, 'standard', $4::text, 0, 1, now(), now())
returning id, email, name, password_hash, tier, pending_plan, paid_at,
          stripe_customer_id, stripe_subscription_id, subscription_status,
          claims_used, claims_remaining, created_at, updated_at;
`

const QSelectUserByID = `--sql 8baaa63a-7a4e-43d5-ba4d-05f53765cb72
select id, email, name, password_hash, tier, pending_plan, paid_at,
       stripe_customer_id, stripe_subscription_id, subscription_status,
       claims_used, claims_remaining, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByEmail = `--sql 5fbd623e-67a0-4501-b763-5e6bf51479df
select id, email, name, password_hash, tier, pending_plan, paid_at,
       stripe_customer_id, stripe_subscription_id, subscription_status,
       claims_used, claims_remaining, created_at, updated_at
from users
where email = lower($1::text)
limit 1;
`

const QSetPendingPlan = `--sql 8c2cc35a-eafa-4617-8a77-0a76ee50df5f
update users
set pending_plan = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSetStripeCustomerID = `--sql 040563be-57d9-498c-b5c1-908fc886efac
update users
set stripe_customer_id = $2::text,
    updated_at = now()
where id = $1::uuid
  and stripe_customer_id is null;
`

const QMarkUserPaid = `--sql 75c00316-883e-4d27-8711-cf39b97c5556
update users
set tier = $2::text,
    pending_plan = null,
    paid_at = $3::timestamptz,
    stripe_customer_id = coalesce(stripe_customer_id, $4::text),
    stripe_subscription_id = $5::text,
    subscription_status = 'active',
    claims_remaining = $6::int,
    name = coalesce($7::text, name),
    updated_at = now()
where id = $1::uuid;
`

const QUpdateSubscription = `--sql 264b484e-35c2-458c-9605-4edc0638f5e8
update users
set stripe_subscription_id = $2::text,
    subscription_status = $3::text,
    updated_at = now()
where id = $1::uuid;
`

// Manual grant used by the userplan CLI. subscription_status is set to
// "manual" so support-granted access is distinguishable from Stripe-confirmed
// payments in the row itself.
const QManualGrantPlan = `--sql e9f41c5d-30ae-4b02-9c6f-dd3d6f6a7d14
update users
set tier = $2::text,
    pending_plan = null,
    paid_at = now(),
    subscription_status = 'manual',
    claims_remaining = $3::int,
    updated_at = now()
where id = $1::uuid
returning id, email, tier, claims_remaining;
`

const QMarkUserUnpaid = `--sql 27f2d667-9456-41fb-b5e3-72bb983de20e
update users
set paid_at = null,
    tier = 'standard',
    stripe_subscription_id = null,
    subscription_status = 'cancelled',
    updated_at = now()
where id = $1::uuid;
`
