package sqlinline

// QInsertClaim consumes one unit of allowance and inserts the claim in a single
// statement, relying on the row-level atomicity of the users update. No row
// comes back when the allowance is exhausted. claims_remaining = -1 is the
// unlimited sentinel and is left untouched.
const QInsertClaim = `--sql e37ecd45-4758-4df1-9b90-ce6e2adf8bd1
with allowance as (
    update users
    set claims_used = claims_used + 1,
        claims_remaining = case when claims_remaining > 0 then claims_remaining - 1 else claims_remaining end,
        updated_at = now()
    where id = $1::uuid
      and (claims_remaining > 0 or claims_remaining = -1)
    returning id
)
insert into claims (id, user_id, title, payload, status, created_at, updated_at)
select gen_random_uuid(), a.id, $2::text, $3::jsonb, 'draft', now(), now()
from allowance a
returning id, user_id, title, payload, status, created_at, updated_at;
`

const QSelectClaimsByUser = `--sql c4338afa-6488-420a-b5e3-9678e2e6d168
select id, user_id, title, payload, status, created_at, updated_at
from claims
where user_id = $1::uuid
order by created_at desc;
`

const QSelectClaimByID = `--sql ea740fff-5e38-4521-b45e-9bd50edb887c
select id, user_id, title, payload, status, created_at, updated_at
from claims
where id = $1::uuid
  and user_id = $2::uuid
limit 1;
`
