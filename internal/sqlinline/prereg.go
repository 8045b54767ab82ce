package sqlinline

const QUpsertPreReg = `--sql 4f05767c-27b8-4d12-828a-8df547bf4035
insert into pre_registrations (email_hash, email, plan, used, created_at, updated_at)
values ($1::text, lower($2::text), $3::text, false, now(), now())
on conflict (email_hash) do update set
    email = excluded.email,
    plan = excluded.plan,
    used = false,
    updated_at = now();
`

const QSelectPreRegByHash = `--sql 6f578743-c95f-436d-bece-234afa0ca713
select email_hash, email, plan, used, created_at, updated_at
from pre_registrations
where email_hash = $1::text
limit 1;
`

const QMarkPreRegUsed = `--sql b0bcc2bc-37eb-4138-ae62-5869b8fcc5a6
update pre_registrations
set used = true,
    updated_at = now()
where email_hash = $1::text;
`
